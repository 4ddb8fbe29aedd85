// Package server implements the optional HTTP monitoring API: health,
// session and vocabulary listings, service statistics, and Prometheus
// metrics exposition.
package server
