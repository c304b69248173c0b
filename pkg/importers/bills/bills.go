// Package bills imports legislative bill records from a constitutional-style
// governance API. One instance drives one pipeline run.
package bills

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"time"

	"github.com/tqviet/extraq/pkg/importer"
	"github.com/tqviet/extraq/pkg/source"
)

const sourceName = "bills"

// knownStatuses are the bill lifecycle states the destination schema
// understands. Anything else fails the transform.
var knownStatuses = map[string]struct{}{
	"draft":     {},
	"submitted": {},
	"review":    {},
	"voting":    {},
	"passed":    {},
	"rejected":  {},
	"enacted":   {},
	"sunset":    {},
}

type Options struct {
	Client *source.Client

	// Status, Category and Region filter the listing; empty means all.
	Status   string
	Category string
	Region   string
}

type Importer struct {
	client  *source.Client
	filters url.Values
}

func New(opts *Options) (*Importer, error) {
	if opts == nil || opts.Client == nil {
		return nil, fmt.Errorf("source client is required")
	}

	filters := url.Values{}
	if len(opts.Status) > 0 {
		filters.Set("status", opts.Status)
	}
	if len(opts.Category) > 0 {
		filters.Set("category", opts.Category)
	}
	if len(opts.Region) > 0 {
		filters.Set("region", opts.Region)
	}

	return &Importer{
		client:  opts.Client,
		filters: filters,
	}, nil
}

func (i *Importer) Extract(ctx context.Context) iter.Seq2[importer.SourceRecord, error] {
	fetch := i.client.FetchPage("/v1/bills", i.filters)

	return func(yield func(importer.SourceRecord, error) bool) {
		for item, err := range importer.Paginate(ctx, fetch) {
			if err != nil {
				yield(importer.SourceRecord{}, err)
				return
			}

			id, _ := item["id"].(string)
			rec := importer.SourceRecord{
				ID:          id,
				Source:      sourceName,
				ExtractedAt: time.Now(),
				Payload:     item,
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (i *Importer) Transform(_ context.Context, src importer.SourceRecord) (importer.TargetRecord, error) {
	title, ok := src.Payload["title"].(string)
	if !ok || title == "" {
		return importer.TargetRecord{}, importer.NewTransformError(src.ID, "title", fmt.Errorf("missing required field"))
	}

	status, _ := src.Payload["status"].(string)
	if _, known := knownStatuses[status]; !known {
		return importer.TargetRecord{}, importer.NewTransformError(src.ID, "status", fmt.Errorf("unrecognized status %q", status))
	}

	payload := map[string]any{
		"title":    title,
		"status":   status,
		"version":  src.Payload["version"],
		"category": src.Payload["category"],
	}
	if region, ok := src.Payload["region"].(string); ok && region != "" {
		payload["region"] = region
	}
	if author, ok := src.Payload["author"].(map[string]any); ok {
		payload["authorId"] = author["id"]
	}

	return importer.TargetRecord{
		ID:       sourceName + ":" + src.ID,
		SourceID: src.ID,
		Payload:  payload,
	}, nil
}

// EstimatedCount asks for a single-item page and reads the listing total.
func (i *Importer) EstimatedCount(ctx context.Context) (int, error) {
	filters := url.Values{}
	for k, vs := range i.filters {
		for _, v := range vs {
			filters.Add(k, v)
		}
	}
	filters.Set("limit", "1")

	page, err := i.client.FetchPage("/v1/bills", filters)(ctx, "")
	if err != nil {
		return 0, err
	}
	if page.Total < 0 {
		return 0, fmt.Errorf("source did not report a total")
	}
	return page.Total, nil
}
