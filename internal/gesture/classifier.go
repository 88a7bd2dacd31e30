// Package gesture labels hand poses from landmarks when the detection
// backend does not report gesture categories itself.
package gesture

import "github.com/ayusman/dwellpoint/internal/detector"

// Gesture labels, named after the MediaPipe gesture recognizer categories.
const (
	None       = "None"
	ClosedFist = "Closed_Fist"
	OpenPalm   = "Open_Palm"
	PointingUp = "Pointing_Up"
	ThumbUp    = "Thumb_Up"
	ThumbDown  = "Thumb_Down"
	Victory    = "Victory"
	ILoveYou   = "ILoveYou"
)

// DefaultReach is the tip-to-joint distance ratio above which a finger is
// considered extended.
const DefaultReach = 1.25

// Known lists every label the classifier can produce, excluding None.
var Known = []string{ClosedFist, OpenPalm, PointingUp, ThumbUp, ThumbDown, Victory, ILoveYou}

type finger struct {
	pip, tip int
}

var fingers = [4]finger{
	{detector.IndexPIP, detector.IndexTip},
	{detector.MiddlePIP, detector.MiddleTip},
	{detector.RingPIP, detector.RingTip},
	{detector.PinkyPIP, detector.PinkyTip},
}

// Classifier labels static hand poses by which fingers are extended.
type Classifier struct {
	// Reach is how much farther from the wrist a fingertip must be than its
	// middle joint for the finger to count as extended.
	Reach float64
}

// NewClassifier creates a Classifier with the default reach ratio.
func NewClassifier() *Classifier {
	return &Classifier{Reach: DefaultReach}
}

// Classify returns the label for hand, or None.
func (c *Classifier) Classify(hand *detector.HandLandmarks) string {
	if !hand.Valid() {
		return None
	}

	var ext [4]bool
	count := 0
	for i, f := range fingers {
		ext[i] = c.extended(hand, detector.Wrist, f.pip, f.tip)
		if ext[i] {
			count++
		}
	}
	thumb := c.extended(hand, detector.IndexMCP, detector.ThumbIP, detector.ThumbTip)
	index, middle, ring, pinky := ext[0], ext[1], ext[2], ext[3]

	switch {
	case count == 4:
		return OpenPalm
	case count == 0 && thumb:
		if hand.Points[detector.ThumbTip].Y < hand.Points[detector.ThumbMCP].Y {
			return ThumbUp
		}
		return ThumbDown
	case count == 0:
		return ClosedFist
	case index && !middle && !ring && !pinky:
		if hand.Points[detector.IndexTip].Y < hand.Points[detector.IndexMCP].Y {
			return PointingUp
		}
		return None
	case index && middle && !ring && !pinky:
		return Victory
	case index && pinky && !middle && !ring && thumb:
		return ILoveYou
	}

	return None
}

// Labels returns the gestures for hand in the form pointer samples carry:
// the backend's own labels when present, otherwise the classifier's
// verdict. None is never included.
func (c *Classifier) Labels(hand *detector.HandLandmarks) []string {
	if hand == nil {
		return nil
	}
	if len(hand.Gestures) > 0 {
		out := make([]string, len(hand.Gestures))
		copy(out, hand.Gestures)
		return out
	}
	if label := c.Classify(hand); label != None {
		return []string{label}
	}
	return nil
}

// extended compares tip and joint distances from an anchor landmark.
func (c *Classifier) extended(hand *detector.HandLandmarks, anchor, joint, tip int) bool {
	reach := c.Reach
	if reach <= 0 {
		reach = DefaultReach
	}
	return hand.Distance(anchor, tip) > reach*hand.Distance(anchor, joint)
}
