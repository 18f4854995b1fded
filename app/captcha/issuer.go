// Package captcha issues and verifies the proof-of-humanity challenges
// that gate self-enrollment. Challenges live in process memory only: one
// live challenge per requester, overwritten by the next issue.
package captcha

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"sync"
	"time"

	"github.com/crewnet/enrol-service/app/dto"
	"github.com/rs/zerolog"
)

const (
	textLength = 6
	charset    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultDeliveryDelay is how long the rendered image is held back
	// before being pushed to the requester. The delay slows down rapid
	// automated probing without affecting the issuing request, which
	// returns immediately.
	DefaultDeliveryDelay = 3 * time.Second
)

// Renderer turns challenge text into an image payload. Rendering is an
// external collaborator; only the byte payload crosses this boundary.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// Pusher delivers a push envelope to a requester's session channel.
type Pusher interface {
	Send(requesterID string, resp dto.Push) error
}

// Challenge is one issued captcha.
type Challenge struct {
	Text     string
	Image    []byte
	IssuedAt time.Time
}

type entry struct {
	challenge Challenge
	timer     *time.Timer
}

// Issuer generates, stores and verifies challenges and schedules their
// delayed delivery. A re-issue for the same requester cancels the
// superseded delivery.
type Issuer struct {
	mu         sync.Mutex
	challenges map[string]*entry

	renderer Renderer
	pusher   Pusher
	delay    time.Duration
	log      zerolog.Logger
}

func NewIssuer(renderer Renderer, pusher Pusher, delay time.Duration, log zerolog.Logger) *Issuer {
	if delay <= 0 {
		delay = DefaultDeliveryDelay
	}
	return &Issuer{
		challenges: make(map[string]*entry),
		renderer:   renderer,
		pusher:     pusher,
		delay:      delay,
		log:        log.With().Str("component", "captcha").Logger(),
	}
}

func randomText() (string, error) {
	buf := make([]byte, textLength)
	max := big.NewInt(int64(len(charset)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = charset[n.Int64()]
	}
	return string(buf), nil
}

// Issue generates a fresh challenge for the requester, replacing any
// prior one, and schedules delivery of the rendered image after the
// configured delay. The caller returns immediately; delivery is best
// effort and dropped if the session is gone by then.
func (i *Issuer) Issue(requesterID string) (Challenge, error) {
	text, err := randomText()
	if err != nil {
		return Challenge{}, err
	}

	image, err := i.renderer.Render(text)
	if err != nil {
		return Challenge{}, err
	}

	challenge := Challenge{
		Text:     text,
		Image:    image,
		IssuedAt: time.Now(),
	}

	i.mu.Lock()
	if prev, ok := i.challenges[requesterID]; ok && prev.timer != nil {
		// Cancel the superseded delivery so a stale image never
		// reaches the client after a re-issue.
		prev.timer.Stop()
	}
	e := &entry{challenge: challenge}
	e.timer = time.AfterFunc(i.delay, func() {
		i.deliver(requesterID, challenge)
	})
	i.challenges[requesterID] = e
	i.mu.Unlock()

	i.log.Debug().Str("requester_id", requesterID).Msg("challenge issued")
	return challenge, nil
}

func (i *Issuer) deliver(requesterID string, challenge Challenge) {
	i.mu.Lock()
	current, ok := i.challenges[requesterID]
	stale := !ok || current.challenge.Text != challenge.Text
	i.mu.Unlock()
	if stale {
		return
	}

	// Challenge delivery carries the image as a bare base64 string, not
	// a result tuple.
	resp := dto.NewPush("captcha", base64.StdEncoding.EncodeToString(challenge.Image))
	if err := i.pusher.Send(requesterID, resp); err != nil {
		i.log.Warn().Err(err).Str("requester_id", requesterID).Msg("challenge delivery dropped")
	}
}

// Verify reports whether the submitted text matches the requester's live
// challenge exactly (case-sensitive). Verification does not consume the
// challenge; it stays valid until overwritten by the next Issue.
func (i *Issuer) Verify(requesterID, submitted string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.challenges[requesterID]
	return ok && submitted == e.challenge.Text
}

// Stop cancels all pending deliveries. Used at shutdown and on
// reconfigure, which resets the challenge table.
func (i *Issuer) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, e := range i.challenges {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	i.challenges = make(map[string]*entry)
}
