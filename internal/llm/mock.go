package llm

import "context"

// Mock is a canned Client for tests and offline runs. A non-nil Err is
// returned from every call; otherwise each method returns its configured
// value.
type Mock struct {
	KeywordsResult []string
	Explanation    string
	Summary        string
	Err            error
}

var _ Client = Mock{}

func (m Mock) Keywords(ctx context.Context, question string) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.KeywordsResult) == 0 {
		return []string{question}, nil
	}
	return m.KeywordsResult, nil
}

func (m Mock) Explain(ctx context.Context, question, corpus string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Explanation, nil
}

func (m Mock) Summarize(ctx context.Context, explanation string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Summary, nil
}

func (m Mock) Name() string {
	return "mock"
}
