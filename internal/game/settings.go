package game

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const reasonVoiceRefund = "voice_refund"

var settingsValidator = newSettingsValidator()

// newSettingsValidator reports fields by their json names.
func newSettingsValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SettingsPatch is a partial settings update. Nil fields are left untouched.
type SettingsPatch struct {
	Mode              *GameMode `json:"gameMode,omitempty" validate:"omitempty,oneof=ffa team"`
	TargetPoints      *int      `json:"targetPoints,omitempty" validate:"omitempty,min=1,max=1000"`
	MaxPointsPerRound *int      `json:"maxPointsPerRound,omitempty" validate:"omitempty,min=1,max=100"`
	EntryPoints       *int      `json:"entryPoints,omitempty" validate:"omitempty,min=0,max=100000"`
	DrawSeconds       *int      `json:"drawSeconds,omitempty" validate:"omitempty,min=15,max=300"`
	MaxPlayers        *int      `json:"maxPlayers,omitempty" validate:"omitempty,min=2,max=50"`
	ThemeID           *uint     `json:"themeId,omitempty"`
	Language          *string   `json:"language,omitempty" validate:"omitempty,max=32"`
	Script            *string   `json:"script,omitempty" validate:"omitempty,max=32"`
	VoiceEnabled      *bool     `json:"voiceEnabled,omitempty"`
}

// RoomSettings is the client-visible settings block.
type RoomSettings struct {
	Mode              GameMode `json:"gameMode"`
	TargetPoints      int      `json:"targetPoints"`
	MaxPointsPerRound int      `json:"maxPointsPerRound"`
	EntryPoints       int      `json:"entryPoints"`
	DrawSeconds       int      `json:"drawSeconds"`
	MaxPlayers        int      `json:"maxPlayers"`
	ThemeID           uint     `json:"themeId"`
	Language          string   `json:"language"`
	Script            string   `json:"script"`
	VoiceEnabled      bool     `json:"voiceEnabled"`
}

func settingsOf(room *Room) RoomSettings {
	return RoomSettings{
		Mode:              room.Mode,
		TargetPoints:      room.TargetPoints,
		MaxPointsPerRound: room.MaxPointsPerRound,
		EntryPoints:       room.EntryPoints,
		DrawSeconds:       room.DrawSeconds,
		MaxPlayers:        room.MaxPlayers,
		ThemeID:           room.ThemeID,
		Language:          room.Language,
		Script:            room.Script,
		VoiceEnabled:      room.VoiceEnabled,
	}
}

// Validate checks every present field against its bounds.
func (p *SettingsPatch) Validate() error {
	if p == nil {
		return validationError(codeInvalidSettings, "settings are required")
	}
	err := settingsValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return validationError(codeInvalidSettings, describeFieldError(verrs[0]))
	}
	return validationError(codeInvalidSettings, err.Error())
}

func describeFieldError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, err.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func (s *Session) updateSettings(ctx context.Context, room *Room, cmd Command) error {
	if _, err := requireMember(room, cmd.UserID); err != nil {
		return err
	}
	if room.OwnerID != cmd.UserID {
		return validationError(codeNotOwner, "only the owner can change settings")
	}
	if room.Status == StatusPlaying {
		return validationError(codeGameInProgress, "settings are locked while playing")
	}
	patch := cmd.Settings
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.MaxPlayers != nil && *patch.MaxPlayers < room.ActiveCount() {
		return validationError(codeInvalidSettings, "maxPlayers is below the current player count")
	}

	enablingVoice := patch.VoiceEnabled != nil && *patch.VoiceEnabled && !room.VoiceEnabled
	if enablingVoice && s.rules.VoiceCost > 0 {
		err := s.deps.Ledger.Debit(ctx, room.OwnerID, s.rules.VoiceCost, reasonVoiceEnable)
		if errors.Is(err, ErrInsufficientFunds) {
			cmdErr := preconditionError(codeInsufficientFunds, "not enough coins to enable voice", err)
			cmdErr.Broadcast = true
			return cmdErr
		}
		if err != nil {
			return fmt.Errorf("debit voice cost: %w", err)
		}
	}

	modeChanged := patch.Mode != nil && *patch.Mode != room.Mode
	applySettings(room, patch)
	if modeChanged {
		if room.Mode == ModeTeam {
			assignMissingTeams(room)
		} else {
			clearTeams(room)
		}
	}
	if err := s.save(ctx, room); err != nil {
		if enablingVoice && s.rules.VoiceCost > 0 {
			if refundErr := s.deps.Ledger.Credit(ctx, room.OwnerID, s.rules.VoiceCost, reasonVoiceRefund); refundErr != nil {
				s.log.Error().Err(refundErr).Msg("voice refund failed")
			}
		}
		return err
	}
	s.broadcast(EventSettingsUpdated, settingsOf(room))
	if modeChanged {
		s.broadcastParticipants(room)
	}
	s.journal(ctx, room, cmd.UserID, "settings_updated", EventPayload{Status: room.Status})
	return nil
}

func applySettings(room *Room, patch *SettingsPatch) {
	if patch.Mode != nil {
		room.Mode = *patch.Mode
	}
	if patch.TargetPoints != nil {
		room.TargetPoints = *patch.TargetPoints
	}
	if patch.MaxPointsPerRound != nil {
		room.MaxPointsPerRound = *patch.MaxPointsPerRound
	}
	if patch.EntryPoints != nil {
		room.EntryPoints = *patch.EntryPoints
	}
	if patch.DrawSeconds != nil {
		room.DrawSeconds = *patch.DrawSeconds
	}
	if patch.MaxPlayers != nil {
		room.MaxPlayers = *patch.MaxPlayers
	}
	if patch.ThemeID != nil {
		room.ThemeID = *patch.ThemeID
	}
	if patch.Language != nil {
		room.Language = NormalizeLanguage(*patch.Language)
	}
	if patch.Script != nil {
		room.Script = NormalizeScript(*patch.Script)
	}
	if patch.VoiceEnabled != nil {
		room.VoiceEnabled = *patch.VoiceEnabled
	}
}
