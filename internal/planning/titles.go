package planning

import (
	"context"
	"strings"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/prompts"
)

// TitleCount is how many title suggestions are returned.
const TitleCount = 5

// SuggestTitles returns up to five newsletter titles for a product and an
// optional topic. A reply without titles is a generation failure.
func (o *Orchestrator) SuggestTitles(ctx context.Context, lc *domain.LaunchContent, topic string) ([]string, error) {
	text, err := o.complete(ctx, prompts.Titles, map[string]interface{}{
		"product": prompts.ProductVars(lc),
		"topic":   topic,
	}, nil)
	if err != nil {
		return nil, err
	}

	var reply struct {
		Titles []string `json:"titles"`
	}
	if err := decodeObject(text, &reply); err != nil {
		return nil, err
	}
	titles := make([]string, 0, TitleCount)
	for _, t := range reply.Titles {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
		if len(titles) == TitleCount {
			break
		}
	}
	if len(titles) == 0 {
		return nil, ErrUnparsable
	}
	return titles, nil
}
