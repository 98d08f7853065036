package sqsd

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/gatehouse/internal/signing"
)

// SQS caps message bodies well below this; anything larger is not a
// queue delivery.
const maxMessageBytes = 1 << 20

const (
	forbiddenResponse = "Forbidden. Only requests from the local queue daemon are accepted."

	wrongDigestResponse = "Incorrect message digest. Verify that the enqueuing " +
		"environment and this worker share the same SECRET_KEY_BASE setting."

	oversizeResponse = "Message body too large. Queue deliveries are capped at 1 MiB."

	unreadableResponse = "Could not read the message body."
)

// Options configures the classifier. All decisions derive from these values
// and the request; nothing is read from the process environment at request
// time.
type Options struct {
	// Enabled gates all special handling. When false, every request is
	// forwarded to the application untouched.
	Enabled bool

	// Secret is the signing secret shared with the enqueuing environment.
	Secret string

	// BridgeAddr is an additional trusted remote host next to loopback,
	// normally DockerHostAddr()'s result. Empty means loopback only.
	BridgeAddr string
}

// Middleware classifies inbound requests. Construct once with New and
// install ahead of the application routes; safe for concurrent use.
type Middleware struct {
	enabled    bool
	bridgeAddr string
	verifier   *signing.Verifier
	tasks      TaskRunner
	jobs       JobRunner
	log        zerolog.Logger
}

// New creates the classifier middleware.
func New(opts Options, tasks TaskRunner, jobs JobRunner, log zerolog.Logger) *Middleware {
	return &Middleware{
		enabled:    opts.Enabled,
		bridgeAddr: opts.BridgeAddr,
		verifier:   signing.NewVerifier(opts.Secret),
		tasks:      tasks,
		jobs:       jobs,
		log:        log.With().Str("component", "sqsd").Logger(),
	}
}

// Handler wraps next with the classification. Checks run in a fixed order
// and the first match wins: gate, daemon user-agent, trusted address,
// periodic-task path, job delivery, fall through.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled || !fromDaemon(r) {
			next.ServeHTTP(w, r)
			return
		}

		// Address check comes before any task or digest handling so that
		// spoofed daemon traffic never reaches either.
		if !m.trustedAddr(r.RemoteAddr) {
			m.log.Warn().
				Str("remote_addr", r.RemoteAddr).
				Str("path", r.URL.Path).
				Msg("Rejected daemon-style request from untrusted address")
			http.Error(w, forbiddenResponse, http.StatusForbidden)
			return
		}

		if strings.HasPrefix(r.URL.Path, PeriodicTasksPath) {
			m.runTask(w, r)
			return
		}

		if isJobDelivery(r) {
			m.runJob(w, r)
			return
		}

		// Daemon-style traffic that is neither a task trigger nor a job
		// delivery belongs to the application.
		next.ServeHTTP(w, r)
	})
}

// fromDaemon reports whether the request presents the daemon's user-agent.
// A plain anchored prefix comparison on purpose: this runs on every request
// and a pattern match would buy nothing here.
func fromDaemon(r *http.Request) bool {
	return strings.HasPrefix(r.UserAgent(), UserAgentPrefix)
}

// trustedAddr reports whether remoteAddr belongs to the local host or, when
// containerized, to the host side of the container bridge. The raw
// connection address is used; forwarding headers are never consulted.
func (m *Middleware) trustedAddr(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if m.bridgeAddr != "" && host == m.bridgeAddr {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// isJobDelivery reports whether the request is a job message from the
// enqueuing side: it carries the origin token, or a digest header is present
// at all. Present-but-empty counts, so a blank digest fails verification
// instead of falling through to the application.
func isJobDelivery(r *http.Request) bool {
	if r.Header.Get(HeaderOrigin) == OriginToken {
		return true
	}
	return len(r.Header.Values(HeaderDigest)) > 0
}

// runTask resolves the trigger's task name and runs it synchronously. The
// daemon gets its acknowledgement either way: retrying a trigger does not
// fix an unknown or broken task, so failures are logged, not surfaced.
func (m *Middleware) runTask(w http.ResponseWriter, r *http.Request) {
	name := r.Header.Get(HeaderTaskName)
	if err := m.tasks.RunTask(r.Context(), name); err != nil {
		m.log.Error().
			Err(err).
			Str("task", name).
			Msg("Periodic task trigger failed")
	}
	acknowledge(w)
}

// runJob verifies the delivery digest over the raw body, then decodes and
// dispatches the payload. Execution failures are logged, not surfaced; the
// delivery itself has been accepted.
func (m *Middleware) runJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		m.log.Warn().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Failed to read job delivery body")
		// Never answer a read failure with the digest text: a too-large
		// message would read as a secret mismatch to the operator.
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, oversizeResponse, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, unreadableResponse, http.StatusBadRequest)
		return
	}

	if err := m.verifier.Verify(body, r.Header.Get(HeaderDigest)); err != nil {
		m.log.Warn().
			Str("remote_addr", r.RemoteAddr).
			Msg("Rejected job delivery with invalid digest")
		http.Error(w, wrongDigestResponse, http.StatusForbidden)
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		// Authentic but undecodable. A redelivery would carry the same
		// bytes, so acknowledge and log instead of bouncing it forever.
		m.log.Error().
			Err(err).
			Msg("Verified job delivery is not a JSON object")
		acknowledge(w)
		return
	}

	if err := m.jobs.Perform(r.Context(), payload); err != nil {
		m.log.Error().
			Err(err).
			Msg("Job execution failed")
	}
	acknowledge(w)
}

// acknowledge answers an accepted delivery. The daemon only looks at the
// status code; the body stays empty.
func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}
