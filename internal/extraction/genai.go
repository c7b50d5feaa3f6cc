package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/conveyorworks/conveyor/internal/mail"
	"github.com/conveyorworks/conveyor/pkg/formatting"
)

// CompletionMarker is the phrase a collaborator summary must end with to
// signal a clean stage completion. It survives from the conversational
// ancestry of this pipeline as a boundary compatibility shim; the workflow
// itself advances on typed outcomes, not on parsing this text.
const CompletionMarker = "Task completed."

// GenAIConfig holds parameters for the Gemini-backed extraction adapter.
type GenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	RateLimitRPS   float64
	RequestTimeout time.Duration
}

// GenAI extracts order candidates using a Gemini vision model with a
// structured JSON response schema.
type GenAI struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// NewGenAI creates the Gemini extraction adapter. Construction failures are
// wrapped as ErrUnavailable since they indicate the collaborator is unusable
// rather than any particular email being malformed.
func NewGenAI(ctx context.Context, cfg GenAIConfig, logger *slog.Logger) (*GenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key required", ErrUnavailable)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: model required", ErrUnavailable)
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	return &GenAI{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		limiter: limiter,
		timeout: cfg.RequestTimeout,
		logger:  logger.With("system", "extraction"),
	}, nil
}

// candidateResponse mirrors the structured response schema.
type candidateResponse struct {
	Found      bool    `json:"found"`
	Confidence float64 `json:"confidence"`
	Order      *struct {
		CustomerName          string     `json:"customer_name"`
		ContactPerson         string     `json:"contact_person"`
		RequestedDeliveryDate string     `json:"requested_delivery_date"`
		Items                 []LineHint `json:"items"`
	} `json:"order"`
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"found":      {Type: genai.TypeBoolean},
		"confidence": {Type: genai.TypeNumber},
		"order": {
			Type:     genai.TypeObject,
			Nullable: genai.Ptr(true),
			Properties: map[string]*genai.Schema{
				"customer_name":           {Type: genai.TypeString},
				"contact_person":          {Type: genai.TypeString},
				"requested_delivery_date": {Type: genai.TypeString},
				"items": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"item_number": {Type: genai.TypeString},
							"description": {Type: genai.TypeString},
							"quantity":    {Type: genai.TypeString},
							"unit":        {Type: genai.TypeString},
						},
					},
				},
			},
		},
	},
	Required: []string{"found", "confidence"},
}

// Extract analyzes one email's body and image attachments against the master
// data catalog and returns zero or one raw order candidates. Errors carrying
// an authorization or configuration status are wrapped as ErrUnavailable.
func (g *GenAI) Extract(ctx context.Context, email mail.EmailRecord, catalog Catalog) (*Result, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	parts := []*genai.Part{genai.NewPartFromText(buildPrompt(email, catalog))}
	for _, att := range email.Attachments {
		part, err := imagePart(att)
		if err != nil {
			g.logger.Warn("skipping unreadable attachment", "email_id", email.ID, "attachment", att, "error", err)
			continue
		}
		if part != nil {
			parts = append(parts, part)
		}
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(callCtx, g.model, contents, &genai.GenerateContentConfig{
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return nil, classifyErr(err)
	}

	parsed, err := formatting.Decode[candidateResponse](resp.Text())
	if err != nil {
		return nil, fmt.Errorf("extract email %s: %w", email.ID, err)
	}

	result := &Result{}
	if parsed.Found && parsed.Order != nil {
		result.Candidates = append(result.Candidates, Candidate{
			SourceEmailID:         email.ID,
			CustomerName:          strings.TrimSpace(parsed.Order.CustomerName),
			ContactPerson:         strings.TrimSpace(parsed.Order.ContactPerson),
			Items:                 parsed.Order.Items,
			RequestedDeliveryDate: strings.TrimSpace(parsed.Order.RequestedDeliveryDate),
			Confidence:            parsed.Confidence,
		})
	}

	result.Summary = fmt.Sprintf(
		"Identified %d order candidate(s) from email %s. %s",
		len(result.Candidates), email.ID, CompletionMarker,
	)

	g.logger.Info(
		"extraction complete",
		"email_id", email.ID,
		"candidates", len(result.Candidates),
		"confidence", parsed.Confidence,
	)

	return result, nil
}

func buildPrompt(email mail.EmailRecord, catalog Catalog) string {
	var b strings.Builder

	b.WriteString("You are an expert at identifying sales orders from emails and images.\n")
	b.WriteString("Repair extracted data toward the master data records below before rejecting it.\n\n")

	b.WriteString("Valid Customers (Name - Number):\n")
	for _, c := range catalog.Customers {
		fmt.Fprintf(&b, "- %s - %s\n", c.Name, c.No)
	}

	b.WriteString("\nValid Items (Number - Description):\n")
	for _, i := range catalog.Items {
		fmt.Fprintf(&b, "- %s - %s\n", i.No, i.Description)
	}

	b.WriteString(`
Instructions:
1. Extract customer information, requested delivery date, and items ordered.
2. If order details are in an attached image, analyze the image carefully and
   match it against the item descriptions above.
3. Keep quantities exactly as written in the email (free text is fine).
4. If no quantity is given for an item, use "1".
5. If no unit is given, use "KPL".
6. Keep the requested delivery date as written; do not invent one.
7. Set found=false and order=null when the email contains no order.

`)

	fmt.Fprintf(&b, "Email from %s, subject %q, received %s:\n-------------\n%s\n",
		email.Sender, email.Subject, email.ReceivedAt.Format("2006-01-02"), email.Body)

	if len(email.Attachments) > 0 {
		b.WriteString("\nAttachments:\n")
		for _, att := range email.Attachments {
			fmt.Fprintf(&b, "- %s\n", filepath.Base(att))
		}
	}

	return b.String()
}

func imagePart(path string) (*genai.Part, error) {
	var mime string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".gif":
		mime = "image/gif"
	default:
		// Non-image attachments are listed in the prompt but not inlined.
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return genai.NewPartFromBytes(data, mime), nil
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	return err
}
