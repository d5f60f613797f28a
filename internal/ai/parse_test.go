package ai

import "testing"

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	tests := []struct {
		name    string
		raw     string
		want    payload
		wantErr bool
	}{
		{
			name: "plain object",
			raw:  `{"name": "a", "count": 2}`,
			want: payload{Name: "a", Count: 2},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"name\": \"b\", \"count\": 3}\n```",
			want: payload{Name: "b", Count: 3},
		},
		{
			name: "fence without language tag",
			raw:  "```\n{\"name\": \"c\", \"count\": 1}\n```",
			want: payload{Name: "c", Count: 1},
		},
		{
			name: "trailing comma",
			raw:  `{"name": "d", "count": 4,}`,
			want: payload{Name: "d", Count: 4},
		},
		{
			name: "fence and trailing comma",
			raw:  "Sure, here you go:\n```json\n{\"name\": \"e\", \"count\": 5,}\n```",
			want: payload{Name: "e", Count: 5},
		},
		{
			name:    "prose only",
			raw:     "I cannot produce JSON for that.",
			wantErr: true,
		},
		{
			name:    "truncated object",
			raw:     `{"name": "f", "count":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := ParseJSON(tt.raw, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
