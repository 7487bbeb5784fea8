package botcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		data    string
		want    Action
		wantErr bool
	}{
		{data: "PLAY|spotify|spotify:track:abc", want: Action{Kind: ActionPlay, Service: Spotify, ID: "spotify:track:abc"}},
		{data: "ADD_TO_FAVORITE|deezer|3135556", want: Action{Kind: ActionFavorite, Service: Deezer, ID: "3135556"}},
		{data: "ADD_TO_QUEUE|spotify|weird|id", want: Action{Kind: ActionQueue, Service: Spotify, ID: "weird|id"}},
		{data: "NEXT||", want: Action{Kind: ActionNext}},
		{data: "NEXT", wantErr: true},
		{data: "PLAY_ON_SPOTIFYabc", wantErr: true},
		{data: "DOWNLOAD|spotify|abc", wantErr: true},
		{data: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := ParseAction(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.data, got.Encode())
		})
	}
}

func TestParseActionOf(t *testing.T) {
	_, err := parseActionOf("NEXT||", ActionPrevious)
	assert.ErrorIs(t, err, errUnexpectedAction)
}
