package state

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"

	"github.com/elijahnyp/home_hub/event"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

const CmdToggleRecording = "TOGGLE_RECORDING"

const (
	frameWidth  = 320
	frameHeight = 240
)

var markColor = color.RGBA{255, 0, 0, 255}

type SmartCamera struct {
	SmartDevice
	mu         sync.Mutex
	recording  bool
	snapshot   []byte
	snapshotAt time.Time
}

func NewSmartCamera(id int, name string, logger zerolog.Logger) *SmartCamera {
	c := &SmartCamera{}
	c.init(id, name, logger, []ConnectionType{WiFi}, []PowerSource{Mains})
	return c
}

func (c *SmartCamera) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *SmartCamera) HandleEvent(ev event.AppEvent) {
	if ev.Payload() != CmdToggleRecording {
		c.logger.Debug().Msgf("ignoring command %q", ev.Payload())
		return
	}
	c.mu.Lock()
	c.recording = !c.recording
	rec := c.recording
	c.mu.Unlock()

	status := "stopped"
	if rec {
		status = "started"
	}
	c.logger.Info().Msgf("camera %s recording %s", c.name, status)
	c.Emit("Recording " + status)
}

// DetectMotion captures an annotated frame and reports the motion.
func (c *SmartCamera) DetectMotion() {
	now := time.Now()
	frame, err := renderFrame(c.name, now)
	if err != nil {
		c.logger.Warn().Msgf("unable to render snapshot: %v", err)
	} else {
		c.mu.Lock()
		c.snapshot = frame
		c.snapshotAt = now
		c.mu.Unlock()
	}
	c.logger.Info().Msgf("motion detected by camera %s", c.name)
	c.Emit("Motion detected")
}

// Snapshot returns the JPEG taken on the last motion detection.
func (c *SmartCamera) Snapshot() ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return nil, time.Time{}, false
	}
	return c.snapshot, c.snapshotAt, true
}

func renderFrame(name string, at time.Time) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	bg := color.RGBA{40, 40, 40, 255}
	for x := 0; x < frameWidth; x++ {
		for y := 0; y < frameHeight; y++ {
			img.Set(x, y, bg)
		}
	}
	markCorners(img, image.Pt(frameWidth/4, frameHeight/4), image.Pt(frameWidth*3/4, frameHeight*3/4))

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(markColor),
		Face: inconsolata.Bold8x16,
		Dot:  fixed.Point26_6{X: fixed.I(8), Y: fixed.I(20)},
	}
	d.DrawString(name + " - motion")
	d.Dot = fixed.Point26_6{X: fixed.I(8), Y: fixed.I(frameHeight - 8)}
	d.DrawString(at.Format(time.RFC3339))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// markCorners draws bracket corners around the box min..max.
func markCorners(img *image.RGBA, min, max image.Point) {
	const width, length = 4, 30
	fill := func(x0, y0, x1, y1 int) {
		for x := x0; x < x1; x++ {
			for y := y0; y < y1; y++ {
				img.Set(x, y, markColor)
			}
		}
	}
	// top left
	fill(min.X, min.Y, min.X+length, min.Y+width)
	fill(min.X, min.Y, min.X+width, min.Y+length)
	// top right
	fill(max.X-length, min.Y, max.X, min.Y+width)
	fill(max.X-width, min.Y, max.X, min.Y+length)
	// bottom left
	fill(min.X, max.Y-width, min.X+length, max.Y)
	fill(min.X, max.Y-length, min.X+width, max.Y)
	// bottom right
	fill(max.X-length, max.Y-width, max.X, max.Y)
	fill(max.X-width, max.Y-length, max.X, max.Y)
}
