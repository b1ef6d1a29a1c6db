package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicfix/internal/models"
	"github.com/terminal-bench/civicfix/internal/routing"
	"github.com/terminal-bench/civicfix/internal/services/notify"
	"github.com/terminal-bench/civicfix/internal/services/photo"
)

const testDefaultContact = "fallback@civicfix.example"

type fakeGeocoder struct {
	addr  models.Address
	err   error
	block bool
	calls int
}

func (g *fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (models.Address, error) {
	g.calls++
	if g.block {
		<-ctx.Done()
		return models.Address{}, ctx.Err()
	}
	if g.err != nil {
		return models.Address{}, g.err
	}
	return g.addr, nil
}

type fakeNotifier struct {
	err   error
	sent  []notify.Message
	calls int
}

func (n *fakeNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func testPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 12), G: uint8(y * 12), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testReport(t *testing.T, issueType string) models.Report {
	t.Helper()
	return models.Report{
		ID:        uuid.New(),
		Lat:       11.4985,
		Lon:       79.7644,
		IssueType: issueType,
		Photo:     testPhoto(t),
	}
}

func newTestPipeline(g *fakeGeocoder, n *fakeNotifier, rules []models.RoutingRule) *Pipeline {
	return New(g, routing.NewTable(rules), photo.NewNormalizer(), n, Options{
		DefaultContact:  testDefaultContact,
		ExternalTimeout: 2 * time.Second,
	})
}

func TestSubmitRouting(t *testing.T) {
	parangipettai := models.Address{City: "Parangipettai", District: "Bhuvanagiri"}

	t.Run("exact rule wins", func(t *testing.T) {
		geocoder := &fakeGeocoder{addr: parangipettai}
		notifier := &fakeNotifier{}
		pipe := newTestPipeline(geocoder, notifier, []models.RoutingRule{
			{ID: 1, City: "Parangipettai", District: "Bhuvanagiri", IssueType: "Pothole", ContactEmail: "roads@parangipettai.example"},
			{ID: 2, City: "", District: "", IssueType: "Pothole", ContactEmail: "global@state.example"},
		})

		result, err := pipe.Submit(context.Background(), testReport(t, "Pothole"))
		require.NoError(t, err)
		assert.Equal(t, "roads@parangipettai.example", result.Recipient)
		assert.False(t, result.UsedDefaultContact)
	})

	t.Run("falls back to city rule when district differs", func(t *testing.T) {
		geocoder := &fakeGeocoder{addr: parangipettai}
		notifier := &fakeNotifier{}
		// No rule for Bhuvanagiri: tier 2 ignores district and takes the
		// first city+issue rule in table order.
		pipe := newTestPipeline(geocoder, notifier, []models.RoutingRule{
			{ID: 1, City: "Parangipettai", District: "Killai", IssueType: "Pothole", ContactEmail: "killai@parangipettai.example"},
			{ID: 2, City: "Parangipettai", District: "", IssueType: "Pothole", ContactEmail: "citywide@parangipettai.example"},
		})

		result, err := pipe.Submit(context.Background(), testReport(t, "Pothole"))
		require.NoError(t, err)
		assert.Equal(t, "killai@parangipettai.example", result.Recipient)
		assert.False(t, result.UsedDefaultContact)
	})

	t.Run("unknown issue type uses default contact", func(t *testing.T) {
		geocoder := &fakeGeocoder{addr: parangipettai}
		notifier := &fakeNotifier{}
		pipe := newTestPipeline(geocoder, notifier, []models.RoutingRule{
			{ID: 1, City: "Parangipettai", District: "Bhuvanagiri", IssueType: "Pothole", ContactEmail: "roads@parangipettai.example"},
		})

		result, err := pipe.Submit(context.Background(), testReport(t, "Graffiti"))
		require.NoError(t, err)
		assert.Equal(t, testDefaultContact, result.Recipient)
		assert.True(t, result.UsedDefaultContact)
	})
}

func TestSubmitComposesNotification(t *testing.T) {
	geocoder := &fakeGeocoder{addr: models.Address{City: "Parangipettai", District: "Bhuvanagiri"}}
	notifier := &fakeNotifier{}
	pipe := newTestPipeline(geocoder, notifier, []models.RoutingRule{
		{ID: 1, City: "Parangipettai", District: "Bhuvanagiri", IssueType: "Pothole", ContactEmail: "roads@parangipettai.example"},
	})

	report := testReport(t, "Pothole")
	_, err := pipe.Submit(context.Background(), report)
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	msg := notifier.sent[0]
	assert.Equal(t, "roads@parangipettai.example", msg.To)
	assert.Equal(t, "New Civic Issue Report: Pothole in Parangipettai", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "Parangipettai, Bhuvanagiri")
	assert.Contains(t, msg.HTMLBody, fmt.Sprintf("https://www.google.com/maps?q=%f,%f", report.Lat, report.Lon))
	assert.Equal(t, "issue_report.jpg", msg.Attachment.Name)
	// Normalized photo is a JPEG.
	require.True(t, len(msg.Attachment.Content) > 2)
	assert.Equal(t, []byte{0xff, 0xd8}, msg.Attachment.Content[:2])
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Report)
	}{
		{"missing issue type", func(r *models.Report) { r.IssueType = "" }},
		{"latitude out of range", func(r *models.Report) { r.Lat = 91 }},
		{"longitude out of range", func(r *models.Report) { r.Lon = -181 }},
		{"empty photo", func(r *models.Report) { r.Photo = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			geocoder := &fakeGeocoder{addr: models.Address{City: "Parangipettai"}}
			notifier := &fakeNotifier{}
			pipe := newTestPipeline(geocoder, notifier, nil)

			report := testReport(t, "Pothole")
			tc.mutate(&report)

			_, err := pipe.Submit(context.Background(), report)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindValidation, kind)
			assert.Zero(t, geocoder.calls, "validation failures must not reach external services")
			assert.Zero(t, notifier.calls)
		})
	}
}

func TestSubmitGeocodeFailure(t *testing.T) {
	t.Run("provider error short-circuits before notify", func(t *testing.T) {
		geocoder := &fakeGeocoder{err: errors.New("connection refused")}
		notifier := &fakeNotifier{}
		pipe := newTestPipeline(geocoder, notifier, nil)

		_, err := pipe.Submit(context.Background(), testReport(t, "Pothole"))
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindAddressUnresolved, kind)
		assert.Zero(t, notifier.calls)
	})

	t.Run("address without city cannot be routed", func(t *testing.T) {
		geocoder := &fakeGeocoder{addr: models.Address{District: "Bhuvanagiri"}}
		notifier := &fakeNotifier{}
		pipe := newTestPipeline(geocoder, notifier, nil)

		_, err := pipe.Submit(context.Background(), testReport(t, "Pothole"))
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindAddressUnresolved, kind)
		assert.Zero(t, notifier.calls)
	})

	t.Run("geocode timeout maps to the address stage", func(t *testing.T) {
		geocoder := &fakeGeocoder{block: true}
		notifier := &fakeNotifier{}
		pipe := New(geocoder, routing.NewTable(nil), photo.NewNormalizer(), notifier, Options{
			DefaultContact:  testDefaultContact,
			ExternalTimeout: 20 * time.Millisecond,
		})

		_, err := pipe.Submit(context.Background(), testReport(t, "Pothole"))
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindAddressUnresolved, kind)
		assert.Zero(t, notifier.calls)
	})
}

func TestSubmitImageFailure(t *testing.T) {
	geocoder := &fakeGeocoder{addr: models.Address{City: "Parangipettai"}}
	notifier := &fakeNotifier{}
	pipe := newTestPipeline(geocoder, notifier, nil)

	report := testReport(t, "Pothole")
	report.Photo = []byte("definitely not an image")

	_, err := pipe.Submit(context.Background(), report)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindImage, kind)
	assert.Zero(t, notifier.calls)
}

func TestSubmitNotifyFailure(t *testing.T) {
	geocoder := &fakeGeocoder{addr: models.Address{City: "Parangipettai", District: "Bhuvanagiri"}}
	notifier := &fakeNotifier{err: errors.New("provider rejected send: status 400")}
	pipe := newTestPipeline(geocoder, notifier, []models.RoutingRule{
		{ID: 1, City: "Parangipettai", District: "Bhuvanagiri", IssueType: "Pothole", ContactEmail: "roads@parangipettai.example"},
	})

	_, err := pipe.Submit(context.Background(), testReport(t, "Pothole"))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindNotify, kind)
	assert.Equal(t, 1, geocoder.calls, "all prior stages ran before the notify failure")
}
