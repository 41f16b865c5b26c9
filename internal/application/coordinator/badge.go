package coordinator

import "github.com/bryanwahyu/urlsentry/internal/domain/analysis"

var badges = map[analysis.Status]analysis.Badge{
	analysis.StatusSafe:       {Text: "✓", Color: "#22c55e"},
	analysis.StatusCaution:    {Text: "!", Color: "#f59e0b"},
	analysis.StatusSuspicious: {Text: "!!", Color: "#f97316"},
	analysis.StatusMalicious:  {Text: "✕", Color: "#ef4444"},
	analysis.StatusError:      {Text: "?", Color: "#9ca3af"},
}

// BadgeFor is the badge of a status. Unknown statuses render as error.
func BadgeFor(s analysis.Status) analysis.Badge {
	if b, ok := badges[s]; ok {
		return b
	}
	return badges[analysis.StatusError]
}
