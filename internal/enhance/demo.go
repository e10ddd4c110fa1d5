package enhance

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DemoMessage accompanies fabricated demo results.
const DemoMessage = "Demo: Image enhanced successfully!"

// DefaultDemoDelay simulates upstream processing time in demo mode.
const DefaultDemoDelay = 2 * time.Second

// DemoEnhancer returns a random placeholder image without contacting the
// upstream API. It is selected at the HTTP boundary, never by Client.
type DemoEnhancer struct {
	Delay time.Duration

	now func() time.Time
}

// NewDemoEnhancer creates a DemoEnhancer with the default delay.
func NewDemoEnhancer() *DemoEnhancer {
	return &DemoEnhancer{Delay: DefaultDemoDelay, now: time.Now}
}

// Enhance waits for the configured delay and returns a picsum.photos URL.
// The request is not validated; demo mode accepts any payload.
func (d *DemoEnhancer) Enhance(ctx context.Context, _ Request) (*Result, error) {
	if d.Delay > 0 {
		if err := sleepContext(ctx, d.Delay); err != nil {
			return nil, newError(ErrTypeUnknown, "", "Demo enhancement interrupted", err)
		}
	}

	now := time.Now
	if d.now != nil {
		now = d.now
	}
	width := rand.IntN(800) + 400
	height := rand.IntN(600) + 300
	imageURL := fmt.Sprintf("https://picsum.photos/%d/%d?random=%d", width, height, now().UnixMilli())
	taskID := "demo-" + uuid.NewString()

	log.Info().Str("taskId", taskID).Str("imageUrl", imageURL).Msg("Demo enhancement complete")
	return &Result{
		ImageURL: imageURL,
		TaskID:   taskID,
		Message:  DemoMessage,
	}, nil
}
