package botcore

import "context"

const (
	JobShareSong   = "shareSong"
	JobUpdateShare = "updateShare"
	JobPostToChat  = "postToChat"
	JobInlineQuery = "inlineQuery"

	// JobConcurrency bounds parallel executions per job name.
	JobConcurrency = 2
)

// JobOptions tune retries and cleanup of a single job.
type JobOptions struct {
	Attempts         int
	RemoveOnComplete bool
}

// DefaultJobOptions is used for every enqueue.
var DefaultJobOptions = JobOptions{Attempts: 5, RemoveOnComplete: true}

// Queue accepts named jobs for asynchronous processing.
type Queue interface {
	Enqueue(ctx context.Context, name string, payload any, opts JobOptions) error
}

// ShareSongJob is the payload of JobShareSong.
type ShareSongJob struct {
	Message Message         `json:"message"`
	Config  ShareSongConfig `json:"config"`
}

// UpdateShareJob carries a posted card that still needs its links.
type UpdateShareJob struct {
	Message         Message         `json:"message"`
	MessageToUpdate ID              `json:"messageToUpdate"`
	Data            ShareSongData   `json:"data"`
	Config          ShareSongConfig `json:"config"`
}

// PostToChatJob is the payload of JobPostToChat.
type PostToChatJob struct {
	Message Message       `json:"message"`
	Data    ShareSongData `json:"data"`
}

// InlineQueryJob is the payload of JobInlineQuery.
type InlineQueryJob struct {
	Message Message `json:"message"`
}
