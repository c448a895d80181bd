package main

import (
	"encoding/json"
	"testing"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		want    []string
		wantErr bool
	}{
		{
			name: "completed",
			req:  Request{Event: "completed", RepCount: 10, RepTarget: 10},
			want: []string{`osascript -e display notification "Session complete: 10 of 10 reps" with title "RepCoach"`},
		},
		{
			name: "completed spoken with title",
			req:  Request{Event: "completed", RepCount: 8, RepTarget: 8, Config: json.RawMessage(`{"speak":true,"title":"Clinic \"A\""}`)},
			want: []string{
				`osascript -e display notification "Session complete: 8 of 8 reps" with title "Clinic \"A\""`,
				`say Well done, session complete`,
			},
		},
		{
			name: "rep silent",
			req:  Request{Event: "rep", RepCount: 3},
		},
		{
			name: "rep spoken",
			req:  Request{Event: "rep", RepCount: 3, Config: json.RawMessage(`{"speak":true}`)},
			want: []string{"say 3"},
		},
		{
			name:    "unknown event",
			req:     Request{Event: "stage"},
			wantErr: true,
		},
		{
			name:    "bad config",
			req:     Request{Event: "rep", Config: json.RawMessage(`[1]`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, err := plan(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("plan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(cmds) != len(tt.want) {
				t.Fatalf("plan() returned %d commands, want %d", len(cmds), len(tt.want))
			}
			for i, c := range cmds {
				got := c.name
				for _, a := range c.args {
					got += " " + a
				}
				if got != tt.want[i] {
					t.Errorf("command %d = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}
