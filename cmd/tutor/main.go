package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bmmrini/New-Darija-Tutor-AI/internal/capture"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/chat"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/config"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/gateway"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/metrics"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/playback"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/server"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/session"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/storage"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/tutor"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/vocab"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "darija-tutor"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load .env if present; the credential may also come from the shell
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	if config.APIKey() == "" {
		logger.Warn("No API key in environment; inference calls will fail until one is set",
			slog.String("variable", config.EnvAPIKey),
		)
	}

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Open the persistence store
	kv, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		logger.Error("Failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer kv.Close()

	// Build the engine components
	sessions := session.NewStore(kv, logger)
	bank := vocab.NewBank(kv, logger)
	appMetrics.SetActiveSessions(sessions.Count())
	appMetrics.SetVocabularySize(bank.Len())

	gw, err := gateway.NewClient(gateway.Config{
		Endpoint:      cfg.Gateway.Endpoint,
		APIKey:        config.APIKey(),
		AnalyzeModel:  cfg.Gateway.AnalyzeModel,
		SpeechModel:   cfg.Gateway.SpeechModel,
		Voice:         cfg.Gateway.Voice,
		Timeout:       cfg.Gateway.GetTimeoutDuration(),
		MaxConcurrent: cfg.Gateway.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create gateway client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	player := playback.NewEngine(cfg.Audio.PlaybackSampleRate, cfg.Audio.Channels, logger)
	mic := capture.NewAdapter(capture.Config{
		SampleRate: cfg.Audio.CaptureSampleRate,
		Channels:   cfg.Audio.Channels,
	}, logger)
	defer mic.Close()

	orchestrator := chat.NewOrchestrator(gw, player, sessions, logger, appMetrics)

	// Start the monitoring HTTP server (if enabled)
	if cfg.HTTP.Enabled {
		httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, sessions, bank, gw, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Stop(shutdownCtx); err != nil {
				logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shut down cleanly on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	driver := &repl{
		orchestrator: orchestrator,
		sessions:     sessions,
		bank:         bank,
		mic:          mic,
		kv:           kv,
		metrics:      appMetrics,
		logger:       logger,
		captureRate:  cfg.Audio.CaptureSampleRate,
	}
	driver.run(ctx)

	logger.Info("Service stopped")
}

// repl is the thin interactive driver around the engine. It renders plain
// text; all state lives in the engine components.
type repl struct {
	orchestrator *chat.Orchestrator
	sessions     *session.Store
	bank         *vocab.Bank
	mic          *capture.Adapter
	kv           storage.KV
	metrics      *metrics.Metrics
	logger       *slog.Logger
	captureRate  int

	lastResponse  *tutor.TutorResponse
	pendingDelete string
}

func (r *repl) run(ctx context.Context) {
	fmt.Println("Darija Tutor. Type a message, or /help for commands.")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !r.handle(ctx, strings.TrimSpace(line)) {
				return
			}
		}
	}
}

// handle processes one input line. Returns false to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return true
	}

	// A pending delete consumes the next line as its confirmation.
	if r.pendingDelete != "" {
		id := r.pendingDelete
		r.pendingDelete = ""
		if strings.EqualFold(line, "y") {
			if r.sessions.Delete(id) {
				r.metrics.RecordSessionDeleted()
				r.metrics.SetActiveSessions(r.sessions.Count())
				fmt.Println("Deleted.")
			}
		} else {
			fmt.Println("Kept.")
		}
		return true
	}

	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line, nil)
		return true
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		r.printHelp()
	case "/quit", "/exit":
		return false
	case "/new":
		sess := r.sessions.Create()
		r.metrics.RecordSessionCreated()
		r.metrics.SetActiveSessions(r.sessions.Count())
		fmt.Printf("Started %q (%s)\n", sess.Title, sess.ID)
	case "/list":
		r.printSessions()
	case "/open":
		if r.sessions.Select(arg) {
			r.printTranscript(arg)
		} else {
			fmt.Printf("No session %q\n", arg)
		}
	case "/delete":
		r.deleteSession(arg)
	case "/record":
		r.toggleRecording(ctx)
	case "/upload":
		r.upload(ctx, arg)
	case "/say":
		if err := r.orchestrator.Pronounce(ctx, arg); err != nil {
			fmt.Printf("Could not generate audio: %v\n", err)
		}
	case "/save":
		r.saveWord(arg)
	case "/remove":
		if r.bank.Remove(arg) {
			r.metrics.SetVocabularySize(r.bank.Len())
			fmt.Printf("Removed %q\n", arg)
		} else {
			fmt.Printf("%q is not saved\n", arg)
		}
	case "/vocab":
		r.printVocabulary()
	case "/theme":
		r.toggleTheme()
	default:
		fmt.Printf("Unknown command %s (try /help)\n", cmd)
	}
	return true
}

// send runs the round-trip on a goroutine so the loop stays responsive
// while a call is in flight; other sessions remain fully usable.
func (r *repl) send(ctx context.Context, text string, audio *tutor.AudioInput) {
	go func() {
		sessionID := r.orchestrator.Send(ctx, text, audio)
		if sessionID == "" {
			return
		}
		r.metrics.SetActiveSessions(r.sessions.Count())

		sess, ok := r.sessions.Get(sessionID)
		if !ok || len(sess.Messages) == 0 {
			return
		}
		last := sess.Messages[len(sess.Messages)-1]
		if last.Role != tutor.RoleModel {
			return
		}

		if last.Error {
			fmt.Printf("\n[%s] %s\n", sess.Title, last.Content)
			return
		}

		r.lastResponse = last.Response
		r.printResponse(sess.Title, last.Response)
	}()
}

func (r *repl) printResponse(title string, resp *tutor.TutorResponse) {
	fmt.Printf("\n[%s]\n", title)
	fmt.Printf("  Transcription: %s\n", resp.Transcription)
	fmt.Printf("  Translation:   %s\n", resp.Translation)
	fmt.Printf("  Explanation:   %s\n", resp.Explanation)
	if len(resp.Vocabulary) > 0 {
		fmt.Println("  Vocabulary (save with /save <n>):")
		for i, item := range resp.Vocabulary {
			marker := " "
			if r.bank.Contains(item.Word) {
				marker = "*"
			}
			fmt.Printf("   %s %d. %s - %s\n", marker, i+1, item.Word, item.Meaning)
		}
	}
}

func (r *repl) printSessions() {
	sessions := r.sessions.List()
	if len(sessions) == 0 {
		fmt.Println("No sessions yet. /new starts one.")
		return
	}
	activeID := r.sessions.ActiveID()
	for _, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = "*"
		}
		fmt.Printf("%s %s  %-24q %d messages, updated %s\n",
			marker, s.ID, s.Title, len(s.Messages), s.UpdatedAt.Format("15:04:05"))
	}
}

func (r *repl) printTranscript(id string) {
	sess, ok := r.sessions.Get(id)
	if !ok {
		return
	}
	fmt.Printf("=== %s ===\n", sess.Title)
	for _, msg := range sess.Messages {
		switch {
		case msg.Role == tutor.RoleUser && msg.Kind == tutor.KindAudio:
			fmt.Println("you: [audio message]")
		case msg.Role == tutor.RoleUser:
			fmt.Printf("you: %s\n", msg.Content)
		case msg.Error:
			fmt.Printf("tutor: %s\n", msg.Content)
		case msg.Response != nil:
			fmt.Printf("tutor: %s (%s)\n", msg.Response.Transcription, msg.Response.Translation)
		}
	}
}

// deleteSession arms a confirmation; the next input line decides.
func (r *repl) deleteSession(id string) {
	if _, ok := r.sessions.Get(id); !ok {
		fmt.Printf("No session %q\n", id)
		return
	}
	r.pendingDelete = id
	fmt.Printf("Delete session %s? [y/N] ", id)
}

func (r *repl) toggleRecording(ctx context.Context) {
	if r.mic.Recording() {
		input, err := r.mic.Stop()
		if err != nil {
			fmt.Printf("Recording failed: %v\n", err)
			return
		}
		r.metrics.RecordRecording(recordedSeconds(input.Base64Data, r.captureRate))
		fmt.Println("Recording sent.")
		r.send(ctx, "", input)
		return
	}

	if err := r.mic.Start(); err != nil {
		fmt.Printf("Could not access microphone: %v\n", err)
		return
	}
	fmt.Println("Recording... /record again to stop and send.")
}

func (r *repl) upload(ctx context.Context, path string) {
	if path == "" {
		fmt.Println("Usage: /upload <path>")
		return
	}
	input, err := capture.LoadFile(path)
	if err != nil {
		fmt.Printf("%v\n", err)
		return
	}
	r.send(ctx, "", input)
}

// saveWord saves the n-th vocabulary item of the last response; this is
// the message-rendering consumer feeding the bank.
func (r *repl) saveWord(arg string) {
	if r.lastResponse == nil || len(r.lastResponse.Vocabulary) == 0 {
		fmt.Println("No vocabulary to save yet.")
		return
	}

	n := 0
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 || n > len(r.lastResponse.Vocabulary) {
		fmt.Printf("Usage: /save <1-%d>\n", len(r.lastResponse.Vocabulary))
		return
	}

	item := r.lastResponse.Vocabulary[n-1]
	if r.bank.Save(item) {
		r.metrics.SetVocabularySize(r.bank.Len())
		fmt.Printf("Saved %q\n", item.Word)
	} else {
		fmt.Printf("%q is already saved\n", item.Word)
	}
}

func (r *repl) printVocabulary() {
	items := r.bank.Items()
	if len(items) == 0 {
		fmt.Println("No saved words yet.")
		return
	}
	for _, item := range items {
		fmt.Printf("  %s - %s", item.Word, item.Meaning)
		if item.Notes != "" {
			fmt.Printf(" (%s)", item.Notes)
		}
		fmt.Println()
	}
}

func (r *repl) toggleTheme() {
	theme, _, err := r.kv.Get(storage.KeyTheme)
	if err != nil {
		fmt.Printf("Theme unavailable: %v\n", err)
		return
	}
	next := storage.ThemeDark
	if theme == storage.ThemeDark {
		next = storage.ThemeLight
	}
	if err := r.kv.Set(storage.KeyTheme, next); err != nil {
		fmt.Printf("Theme unavailable: %v\n", err)
		return
	}
	fmt.Printf("Theme set to %s\n", next)
}

func (r *repl) printHelp() {
	fmt.Println(`Commands:
  /new             start a new conversation
  /list            list sessions, most recent first
  /open <id>       switch to a session and print its transcript
  /delete <id>     delete a session (asks for confirmation)
  /record          start/stop microphone recording (stop sends it)
  /upload <path>   send an audio file (max 20 MiB)
  /say <text>      pronounce the Darija script before any parenthetical
  /save <n>        save vocabulary item n from the last response
  /remove <word>   remove a saved word
  /vocab           list saved words
  /theme           toggle dark/light theme flag
  /quit            exit`)
}

// recordedSeconds estimates the duration of a base64 WAV recording from its
// payload size. An upper bound is fine for a histogram sample.
func recordedSeconds(b64 string, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	samples := (base64.StdEncoding.DecodedLen(len(b64)) - 44) / 2
	if samples < 0 {
		return 0
	}
	return float64(samples) / float64(sampleRate)
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr", "":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
