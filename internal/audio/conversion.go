// Package audio is the PulseAudio-shaped backend facade: volume/format
// conversion helpers and live device/stream models. Grounded on
// original_source/crates/wayle-audio/src/backend/conversion.rs.
package audio

// PulseVolumeNormal is PulseAudio's "100% / 0dB" volume unit.
// Grounded on conversion.rs's PulseVolume::NORMAL constant.
const PulseVolumeNormal = 65536

// ChannelPosition mirrors libpulse's channel-position enum.
type ChannelPosition int

const (
	ChannelUnknown ChannelPosition = iota
	ChannelMono
	ChannelFrontLeft
	ChannelFrontRight
	ChannelFrontCenter
	ChannelRearLeft
	ChannelRearRight
	ChannelLFE
	ChannelSideLeft
	ChannelSideRight
)

// SampleFormat mirrors libpulse's sample-format enum.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatU8
	FormatS16LE
	FormatS16BE
	FormatS24LE
	FormatS24BE
	FormatS32LE
	FormatS32BE
	FormatF32LE
	FormatF32BE
)

// Volume is a normalized, channel-independent volume level where 1.0
// is "100%" and values above 1.0 represent amplification above
// nominal, matching conversion.rs's Volume type.
type Volume struct {
	Levels []float64
}

// Average returns the mean of the per-channel levels, or 0 for an
// empty channel set.
func (v Volume) Average() float64 {
	if len(v.Levels) == 0 {
		return 0
	}
	var sum float64
	for _, l := range v.Levels {
		sum += l
	}
	return sum / float64(len(v.Levels))
}

// ToPulse converts a Volume to PulseAudio's integer channel-volume
// representation: pulse_vol = avg_level * NORMAL, grounded exactly on
// convert_volume_to_pulse.
func ToPulse(v Volume) []uint32 {
	avg := v.Average()
	pulseVal := uint32(avg * float64(PulseVolumeNormal))
	out := make([]uint32, len(v.Levels))
	for i := range out {
		out[i] = pulseVal
	}
	return out
}

// FromPulse converts PulseAudio integer channel volumes back to a
// normalized Volume, grounded exactly on convert_volume_from_pulse:
// avg_level = pulse_vol / NORMAL, per channel.
func FromPulse(channels []uint32) Volume {
	levels := make([]float64, len(channels))
	for i, c := range channels {
		levels[i] = float64(c) / float64(PulseVolumeNormal)
	}
	return Volume{Levels: levels}
}

// convertChannelPosition maps a libpulse channel-position code (as
// used by PulseAudio's pa_channel_position_t enum ordering) to
// ChannelPosition, defaulting unrecognized codes to ChannelUnknown
// rather than erroring, per conversion.rs's convert_channel_position.
func convertChannelPosition(pulsePos int) ChannelPosition {
	switch pulsePos {
	case 0:
		return ChannelMono
	case 1:
		return ChannelFrontLeft
	case 2:
		return ChannelFrontRight
	case 3:
		return ChannelFrontCenter
	case 4:
		return ChannelRearLeft
	case 5:
		return ChannelRearRight
	case 6:
		return ChannelLFE
	case 7:
		return ChannelSideLeft
	case 8:
		return ChannelSideRight
	default:
		return ChannelUnknown
	}
}

// DeviceState mirrors PulseAudio's sink/source state, collapsing
// every non-running/idle state to Suspended, per
// create_device_info_from_sink's state mapping.
type DeviceState int

const (
	DeviceSuspended DeviceState = iota
	DeviceRunning
	DeviceIdle
)

func deviceStateFromPulse(pulseState string) DeviceState {
	switch pulseState {
	case "running":
		return DeviceRunning
	case "idle":
		return DeviceIdle
	default:
		return DeviceSuspended
	}
}

// StreamState mirrors a playback/record stream's run state.
type StreamState int

const (
	StreamRunning StreamState = iota
	StreamCorked
)

// streamStateFromSinkInput always reports StreamRunning. This
// preserves the original implementation's
// create_stream_info_from_sink_input behavior verbatim (it never
// inspects the sink-input's actual corked flag); spec.md §9 keeps this
// as a deliberately preserved quirk, not a bug to fix here.
func streamStateFromSinkInput() StreamState {
	return StreamRunning
}
