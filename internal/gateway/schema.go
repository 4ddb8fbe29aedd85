package gateway

// Wire shapes for the generateContent API. Only the fields this service
// touches are modeled.

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType   string        `json:"responseMimeType,omitempty"`
	ResponseSchema     *schema       `json:"responseSchema,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

// schema is the constrained-decoding schema dialect accepted by the API.
type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// tutorResponseSchema constrains analysis responses to the exact
// TutorResponse shape so the reply parses without cleanup.
func tutorResponseSchema() *schema {
	return &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"transcription": {
				Type:        "STRING",
				Description: "The transcription of what the user said or wrote. If audio, write what was heard in Darija/Arabic script.",
			},
			"translation": {
				Type:        "STRING",
				Description: "A direct English translation of the transcription.",
			},
			"explanation": {
				Type:        "STRING",
				Description: "An English explanation of the meaning and grammar of the input.",
			},
			"vocabulary": {
				Type: "ARRAY",
				Items: &schema{
					Type: "OBJECT",
					Properties: map[string]*schema{
						"word":    {Type: "STRING", Description: "The Darija word/phrase in 'Arabic Script (Latin Script)' format."},
						"meaning": {Type: "STRING", Description: "English meaning."},
						"notes":   {Type: "STRING", Description: "Grammar or usage notes."},
					},
					Required: []string{"word", "meaning"},
				},
			},
		},
		Required: []string{"transcription", "translation", "explanation", "vocabulary"},
	}
}

// systemInstruction steers the tutoring model. Kept verbatim across
// transports so text and audio inputs get identical treatment.
const systemInstruction = `
You are an expert Moroccan Darija (Moroccan Arabic) tutor.
Your goal is to help the user practice by analyzing their input (text or audio).

1. **Analyze**: Understand the user's Darija input.
2. **Transcribe**: If input is audio, transcribe it accurately in Darija (Arabic script). If text, correct any typos.
3. **Translate**: Provide a direct, natural English translation of what was said.
4. **Explain**: Provide a clear, concise English explanation of the grammar, meaning, and cultural context.
5. **Extract Vocabulary**: Identify key words or phrases.
6. **Formatting Strictness**:
   - ALWAYS provide Darija words in both Arabic Script and Latin Script in parentheses.
   - Example: "كيف داير (Kif dayr)" or "لاباس (Labas)".
   - This applies to the 'transcription' (if mixing scripts helps, but prefer Arabic script mostly) and especially the 'vocabulary' fields.

If the user speaks English asking for a translation, provide the Darija translation in the transcription, translation, and vocabulary sections accordingly.
`
