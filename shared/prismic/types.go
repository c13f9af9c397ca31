package prismic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// apiRoot is the response of the API entry point.
type apiRoot struct {
	Refs []apiRef `json:"refs" validate:"required,min=1,dive"`
}

type apiRef struct {
	ID          string `json:"id"`
	Ref         string `json:"ref" validate:"required"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// searchResponse is one page of the documents search endpoint.
type searchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page" validate:"omitnil,url"`
	Results          []document `json:"results" validate:"dive"`
}

type document struct {
	ID                   string          `json:"id" validate:"required"`
	UID                  string          `json:"uid" validate:"required"`
	Type                 string          `json:"type" validate:"required"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	Data                 json.RawMessage `json:"data" validate:"required"`
}

type postData struct {
	Title    textField      `json:"title"`
	Subtitle textField      `json:"subtitle"`
	Author   textField      `json:"author"`
	Banner   imageField     `json:"banner"`
	Content  []contentGroup `json:"content" validate:"dive"`
}

type imageField struct {
	URL string `json:"url" validate:"omitempty,url"`
	Alt string `json:"alt"`
}

type contentGroup struct {
	Heading textField       `json:"heading"`
	Body    []richTextBlock `json:"body" validate:"dive"`
}

type richTextBlock struct {
	Type   string  `json:"type" validate:"required"`
	Text   string  `json:"text"`
	Spans  []span  `json:"spans" validate:"dive"`
	URL    string  `json:"url"`
	Alt    *string `json:"alt"`
	OEmbed *oembed `json:"oembed"`
}

type span struct {
	Start int       `json:"start" validate:"gte=0"`
	End   int       `json:"end" validate:"gtefield=Start"`
	Type  string    `json:"type" validate:"required"`
	Data  *spanData `json:"data"`
}

type spanData struct {
	LinkType string `json:"link_type"`
	URL      string `json:"url"`
	Target   string `json:"target"`
	UID      string `json:"uid"`
	Type     string `json:"type"`
	Label    string `json:"label"`
}

type oembed struct {
	Type         string `json:"type"`
	EmbedURL     string `json:"embed_url"`
	ProviderName string `json:"provider_name"`
	HTML         string `json:"html"`
}

// textField accepts either a Key Text string or a Title/Rich Text array,
// flattening the latter to its plain text.
type textField string

func (t *textField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = textField(s)
		return nil
	}

	var blocks []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &blocks); err != nil {
		return fmt.Errorf("text field is neither a string nor structured text: %w", err)
	}
	parts := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		parts = append(parts, blk.Text)
	}
	*t = textField(strings.Join(parts, " "))
	return nil
}

// publicationLayouts are the timestamp layouts the API has been seen to use.
var publicationLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

func parsePublicationDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	for _, layout := range publicationLayouts {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised publication date %q", *raw)
}
