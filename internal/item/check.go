package item

import "strings"

// CheckInput contains the fields validated before an item is stored.
type CheckInput struct {
	Content        string
	IsThread       bool
	ThreadPosition *int
	MaxChars       int
}

// CheckResult reports every problem found, not just the first.
type CheckResult struct {
	Valid       bool
	Empty       bool
	TooLarge    bool
	ActualChars int
	MaxChars    int

	// Problems holds human readable messages for non-size failures.
	Problems []string
}

// Check validates item content and thread placement.
func Check(input CheckInput) *CheckResult {
	result := &CheckResult{
		Valid:       true,
		ActualChars: CountChars(input.Content),
		MaxChars:    input.MaxChars,
	}

	if strings.TrimSpace(input.Content) == "" {
		result.Empty = true
		result.Valid = false
	}

	if input.MaxChars > 0 && result.ActualChars > input.MaxChars {
		result.TooLarge = true
		result.Valid = false
	}

	if input.ThreadPosition != nil {
		switch {
		case !input.IsThread:
			result.Problems = append(result.Problems, "threadPosition requires isThread")
		case *input.ThreadPosition < 1:
			result.Problems = append(result.Problems, "threadPosition must be >= 1")
		}
	}
	if len(result.Problems) > 0 {
		result.Valid = false
	}

	return result
}
