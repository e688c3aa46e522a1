package client

import "context"

// AskService answers natural-language questions.
type AskService struct {
	c *Client
}

// Ask submits a question and returns the full answer with lineage and audit
// annotations.
func (s *AskService) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	var answer Answer
	if err := s.c.post(ctx, "/api/v1/ask", req, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}
