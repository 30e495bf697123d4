package form

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vitrine/storefront_sdk_go/pkg/query"
)

// ValuesMutation is the mutation shape a form submits through.
type ValuesMutation = query.Mutation[map[string]any, json.RawMessage]

// MutationSubmitter sends form values through a query mutation, so the
// mutation's loading state and callbacks see form submissions too.
type MutationSubmitter struct {
	Mutation *ValuesMutation
}

func (s MutationSubmitter) Submit(ctx context.Context, values Values) (json.RawMessage, error) {
	return s.Mutation.MutateAsync(ctx, map[string]any(values))
}

// NewRemote builds a form that sends its values with method to path. An
// empty method means POST.
func NewRemote(fetcher query.Fetcher, method, path string, opts Options) (*Form, *ValuesMutation) {
	if method == "" {
		method = http.MethodPost
	}
	m := query.NewMutation[map[string]any, json.RawMessage](fetcher, query.MutationOptions[map[string]any, json.RawMessage]{
		Method: method,
		Path:   path,
		Logger: opts.Logger,
	})
	return New(MutationSubmitter{Mutation: m}, opts), m
}
