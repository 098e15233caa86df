// Package admission enforces room, participant, and call concurrency limits
// against an in-memory ledger, and builds the room metadata document handed
// to the media server on room creation.
package admission

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	// ErrRoomLimitReached is returned when room creation would exceed
	// max_concurrent_rooms.
	ErrRoomLimitReached = errors.New("admission: max concurrent rooms reached")

	// ErrParticipantLimitReached is returned when adding a participant would
	// exceed max_participants_per_room.
	ErrParticipantLimitReached = errors.New("admission: max participants per room reached")

	// ErrUnknownRoom is returned for operations against a room not present
	// in the ledger.
	ErrUnknownRoom = errors.New("admission: unknown room")
)

// Limits bounds room/participant/track counts.
type Limits struct {
	MaxConcurrentRooms     int
	MaxParticipantsPerRoom int
	MaxAudioTracksPerRoom  int
	MaxVideoTracksPerRoom  int
}

// AudioOptimization is the audio_optimization sub-object of room metadata.
type AudioOptimization struct {
	TargetLatencyMs      int  `json:"target_latency_ms"`
	BufferSizeMs         int  `json:"buffer_size_ms"`
	JitterBufferMs       int  `json:"jitter_buffer_ms"`
	EchoCancellation     bool `json:"echo_cancellation"`
	NoiseSuppression     bool `json:"noise_suppression"`
	AutomaticGainControl bool `json:"automatic_gain_control"`
	AdaptiveBitrate      bool `json:"adaptive_bitrate"`
	MinBitrateKbps       int  `json:"min_bitrate_kbps"`
	MaxBitrateKbps       int  `json:"max_bitrate_kbps"`
}

// DefaultAudioOptimization returns voice-call-tuned defaults.
func DefaultAudioOptimization() AudioOptimization {
	return AudioOptimization{
		TargetLatencyMs:      150,
		BufferSizeMs:         20,
		JitterBufferMs:       40,
		EchoCancellation:     true,
		NoiseSuppression:     true,
		AutomaticGainControl: true,
		AdaptiveBitrate:      true,
		MinBitrateKbps:       16,
		MaxBitrateKbps:       64,
	}
}

// PerformanceLimits is the performance_limits sub-object of room metadata.
type PerformanceLimits struct {
	MaxAudioTracks int `json:"max_audio_tracks"`
	MaxVideoTracks int `json:"max_video_tracks"`
}

// RoomMetadata is the opaque-to-this-core JSON document passed verbatim to
// the media server on room creation.
type RoomMetadata struct {
	AudioOptimization AudioOptimization `json:"audio_optimization"`
	PerformanceLimits PerformanceLimits `json:"performance_limits"`
}

// BuildRoomMetadata assembles room metadata from the configured limits and
// audio tuning.
func BuildRoomMetadata(limits Limits, audio AudioOptimization) RoomMetadata {
	return RoomMetadata{
		AudioOptimization: audio,
		PerformanceLimits: PerformanceLimits{
			MaxAudioTracks: limits.MaxAudioTracksPerRoom,
			MaxVideoTracks: limits.MaxVideoTracksPerRoom,
		},
	}
}

// MarshalJSON serializes room metadata for the media server.
func (m RoomMetadata) MarshalJSON() ([]byte, error) {
	type alias RoomMetadata
	return json.Marshal(alias(m))
}

// room is the ledger's internal per-room record.
type room struct {
	id           string
	createdAt    time.Time
	participants map[string]struct{}
}

// idleRoomThreshold is the age at which a zero-participant room is eligible
// for cleanup.
const idleRoomThreshold = time.Hour

// DeleteRoomFunc deletes a room on the media server; invoked by idle
// cleanup for rooms the ledger is dropping.
type DeleteRoomFunc func(roomID string) error

// Ledger tracks active rooms and their participants, enforcing Limits
// atomically.
type Ledger struct {
	mu     sync.Mutex
	limits Limits
	rooms  map[string]*room
}

// NewLedger constructs an empty ledger with the given limits.
func NewLedger(limits Limits) *Ledger {
	return &Ledger{limits: limits, rooms: make(map[string]*room)}
}

// CreateRoom admits a new room if under max_concurrent_rooms.
func (l *Ledger) CreateRoom(roomID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.rooms) >= l.limits.MaxConcurrentRooms {
		return ErrRoomLimitReached
	}

	l.rooms[roomID] = &room{
		id:           roomID,
		createdAt:    time.Now(),
		participants: make(map[string]struct{}),
	}
	return nil
}

// AddParticipant admits a participant into roomID if under
// max_participants_per_room.
func (l *Ledger) AddParticipant(roomID, participantID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	if len(r.participants) >= l.limits.MaxParticipantsPerRoom {
		return ErrParticipantLimitReached
	}

	r.participants[participantID] = struct{}{}
	return nil
}

// RemoveParticipant drops a participant from roomID, if present.
func (l *Ledger) RemoveParticipant(roomID, participantID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.rooms[roomID]; ok {
		delete(r.participants, participantID)
	}
}

// RemoveRoom drops a room from the ledger entirely.
func (l *Ledger) RemoveRoom(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rooms, roomID)
}

// ParticipantCount returns the current participant count for roomID.
func (l *Ledger) ParticipantCount(roomID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.rooms[roomID]; ok {
		return len(r.participants)
	}
	return 0
}

// RoomCount returns the current number of ledgered rooms.
func (l *Ledger) RoomCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}

// CleanupIdleRooms deletes rooms older than idleRoomThreshold with zero
// participants, both from the media server (via del) and the ledger.
func (l *Ledger) CleanupIdleRooms(del DeleteRoomFunc) []string {
	l.mu.Lock()
	var stale []string
	now := time.Now()
	for id, r := range l.rooms {
		if len(r.participants) == 0 && now.Sub(r.createdAt) > idleRoomThreshold {
			stale = append(stale, id)
		}
	}
	l.mu.Unlock()

	var removed []string
	for _, id := range stale {
		if del != nil {
			if err := del(id); err != nil {
				continue
			}
		}
		l.RemoveRoom(id)
		removed = append(removed, id)
	}
	return removed
}
