package feedback

import "time"

// Sequencer runs the timed cue/mute sequences around a recording session.
// Each sequence is an independent goroutine holding only what was captured
// at spawn time; the ordering invariants are:
//
//	start cue finishes → mute engages → ready cue plays
//	unmute → stop cue plays
type Sequencer struct {
	player *Player

	// StartDelay is the pause before the on-demand sequence begins, giving
	// the microphone stream time to come up before any feedback plays.
	StartDelay time.Duration
	// ReadyDelay separates mute engagement (or capture start) from the
	// ready cue.
	ReadyDelay time.Duration
}

// NewSequencer creates a Sequencer with the stock delays.
func NewSequencer(p *Player) *Sequencer {
	return &Sequencer{
		player:     p,
		StartDelay: 100 * time.Millisecond,
		ReadyDelay: 150 * time.Millisecond,
	}
}

// BeginAlwaysOn plays the start cue and engages the mute as soon as it
// finishes. Used when the microphone is already live, so the cue can run
// concurrently with capture startup.
func (s *Sequencer) BeginAlwaysOn(mute func()) {
	go func() {
		s.player.PlayBlocking(SoundStart)
		mute()
	}()
}

// SignalReady plays the ready cue after ReadyDelay. Callers invoke this
// only when capture actually started.
func (s *Sequencer) SignalReady() {
	go func() {
		time.Sleep(s.ReadyDelay)
		s.player.Play(SoundReady)
	}()
}

// BeginOnDemand runs the full delayed sequence for on-demand microphone
// mode: wait for the stream to come up, play the start cue, mute, wait,
// then signal ready. Callers invoke this only after capture started.
func (s *Sequencer) BeginOnDemand(mute func()) {
	go func() {
		time.Sleep(s.StartDelay)
		s.player.PlayBlocking(SoundStart)
		mute()
		time.Sleep(s.ReadyDelay)
		s.player.Play(SoundReady)
	}()
}

// End plays the stop cue. The caller must have released the mute first so
// the cue is audible.
func (s *Sequencer) End() {
	s.player.Play(SoundStop)
}
