// Package sqsd is the trust boundary between the queue delivery daemon and
// the application. Every inbound request is classified into one of four
// outcomes: forwarded to the application untouched, rejected as forged
// daemon traffic, executed as a periodic-task trigger, or verified against
// the shared signing secret and dispatched as a job.
package sqsd

import "context"

const (
	// UserAgentPrefix opens the user-agent of every request the queue
	// delivery daemon issues.
	UserAgentPrefix = "aws-sqsd"

	// OriginToken marks messages produced by this project's enqueuer. The
	// daemon copies it from the message attributes into HeaderOrigin.
	OriginToken = "gatehouse"

	// PeriodicTasksPath prefixes every scheduled-task trigger request.
	PeriodicTasksPath = "/periodic_tasks"

	// DockerHostIP is the host side of the default Docker bridge, the
	// address daemon traffic arrives from when the worker runs inside a
	// container.
	DockerHostIP = "172.17.0.1"
)

// Headers set by the queue delivery daemon. The daemon exposes message
// attribute "x" as header "X-Aws-Sqsd-Attr-X".
const (
	HeaderDigest   = "X-Aws-Sqsd-Attr-Message-Digest"
	HeaderOrigin   = "X-Aws-Sqsd-Attr-Origin"
	HeaderTaskName = "X-Aws-Sqsd-Taskname"
)

// Message attribute names the enqueuer attaches to outgoing messages.
const (
	AttrMessageDigest = "message-digest"
	AttrOrigin        = "origin"
)

// TaskRunner resolves a periodic-task name and runs it. A name that does
// not resolve must return an error without executing anything.
type TaskRunner interface {
	RunTask(ctx context.Context, name string) error
}

// JobRunner executes a decoded job payload.
type JobRunner interface {
	Perform(ctx context.Context, payload map[string]any) error
}
