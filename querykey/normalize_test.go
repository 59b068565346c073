package querykey

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Namespace
	}{
		{name: "camel case", input: "CrawlJob", want: "crawl_job"},
		{name: "already snake", input: "crawl_job", want: "crawl_job"},
		{name: "acronym run", input: "HTTPServer", want: "http_server"},
		{name: "pointer type name", input: "*models.TicketComment", want: "models_ticket_comment"},
		{name: "digits", input: "OAuth2Token", want: "o_auth_2_token"},
		{name: "spaces and dashes", input: "ticket comments-v2", want: "ticket_comments_v_2"},
		{name: "empty", input: "", want: ""},
		{name: "punctuation only trims away", input: "***", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
