package device

// Sprite identifies one drawable image in the asset set.
type Sprite int

// Sprite identifiers.
const (
	SpriteNone Sprite = iota
	SpriteTable
	SpriteBodyStandard
	SpriteBodyEarTwitch
	SpriteFaceStock
	SpriteFaceHappy
	SpriteFaceSleepy
	SpriteFaceBlink
	SpritePawsUp
	SpritePawLeftDown
	SpritePawRightDown
	SpriteEffectClickLeft
	SpriteEffectClickRight
	SpriteSleepy1
	SpriteSleepy2
	SpriteSleepy3
)

// String names the sprite for logs and the terminal renderer.
func (s Sprite) String() string {
	switch s {
	case SpriteNone:
		return "none"
	case SpriteTable:
		return "table"
	case SpriteBodyStandard:
		return "body"
	case SpriteBodyEarTwitch:
		return "body-ear-twitch"
	case SpriteFaceStock:
		return "face-stock"
	case SpriteFaceHappy:
		return "face-happy"
	case SpriteFaceSleepy:
		return "face-sleepy"
	case SpriteFaceBlink:
		return "face-blink"
	case SpritePawsUp:
		return "paws-up"
	case SpritePawLeftDown:
		return "paw-left-down"
	case SpritePawRightDown:
		return "paw-right-down"
	case SpriteEffectClickLeft:
		return "click-left"
	case SpriteEffectClickRight:
		return "click-right"
	case SpriteSleepy1:
		return "sleepy-1"
	case SpriteSleepy2:
		return "sleepy-2"
	case SpriteSleepy3:
		return "sleepy-3"
	default:
		return "unknown"
	}
}

// LayerSet is one composed frame, back to front. Table and Body are
// always populated; the rest may be SpriteNone.
type LayerSet struct {
	Table   Sprite
	Body    Sprite
	Face    Sprite
	Paws    Sprite
	Effects Sprite
}

// baseLayers is the resting composition every state starts from.
func baseLayers() LayerSet {
	return LayerSet{
		Table: SpriteTable,
		Body:  SpriteBodyStandard,
		Face:  SpriteFaceStock,
		Paws:  SpritePawsUp,
	}
}

// pawFrameCount is the length of the typing paw cycle: left down, up,
// right down, up.
const pawFrameCount = 4

// pawSprite maps a cycle frame index to its paw sprite.
func pawSprite(frame int) Sprite {
	switch frame % pawFrameCount {
	case 0:
		return SpritePawLeftDown
	case 1, 3:
		return SpritePawsUp
	default:
		return SpritePawRightDown
	}
}

// pawDown reports whether the frame is a down phase, where click
// effects may appear.
func pawDown(frame int) bool {
	return frame%2 == 0
}

// clickEffect returns the effect sprite matching a down-phase frame.
func clickEffect(frame int) Sprite {
	if frame%pawFrameCount == 0 {
		return SpriteEffectClickLeft
	}
	return SpriteEffectClickRight
}

// sleepySprite maps the sleepy loop frame to its sprite.
func sleepySprite(frame int) Sprite {
	switch frame % 3 {
	case 0:
		return SpriteSleepy1
	case 1:
		return SpriteSleepy2
	default:
		return SpriteSleepy3
	}
}
