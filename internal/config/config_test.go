package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountPool(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Account
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{
			name: "single pair",
			raw:  "alice:secret",
			want: []Account{{Username: "alice", Password: "secret"}},
		},
		{
			name: "multiple pairs with spaces",
			raw:  "alice:secret, bob:hunter2",
			want: []Account{
				{Username: "alice", Password: "secret"},
				{Username: "bob", Password: "hunter2"},
			},
		},
		{name: "missing separator", raw: "alice", wantErr: true},
		{name: "missing username", raw: ":secret", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Config{FulfillmentAccounts: tt.raw}

			accounts, err := config.AccountPool()

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, accounts)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		DatabaseURI:         "postgres://localhost/topup",
		ReportHour:          9,
		ReminderLadderHours: []int{1, 6, 24, 72},
	}
	require.NoError(t, valid.validateConfig())

	noDB := valid
	noDB.DatabaseURI = ""
	require.Error(t, noDB.validateConfig())

	badHour := valid
	badHour.ReportHour = 24
	require.Error(t, badHour.validateConfig())

	emptyLadder := valid
	emptyLadder.ReminderLadderHours = nil
	require.Error(t, emptyLadder.validateConfig())

	negativeStep := valid
	negativeStep.ReminderLadderHours = []int{1, -6}
	require.Error(t, negativeStep.validateConfig())
}
