package object

import "testing"

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want State
	}{
		{"fresh", Record{PID: "a"}, StateActive},
		{"archived", Record{PID: "a", Archived: true}, StateArchived},
		{"obsoleted", Record{PID: "a", ObsoletedBy: "b"}, StateObsoleted},
		{"obsoleted and archived", Record{PID: "a", ObsoletedBy: "b", Archived: true}, StateObsoleted},
		{"deleted", Record{PID: "a", Deleted: true}, StateDeleted},
		{"deleted dominates", Record{PID: "a", Deleted: true, ObsoletedBy: "b", Archived: true}, StateDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateOf(&tt.rec); got != tt.want {
				t.Errorf("StateOf = %q, want %q", got, tt.want)
			}
		})
	}
}
