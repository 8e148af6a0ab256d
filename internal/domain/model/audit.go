package model

// Audit actions.
const (
	ActionSubmitLevel         = "submit_level"
	ActionSubmitCompletion    = "submit_completion"
	ActionWithdrawSubmission  = "withdraw_submission"
	ActionApproveLevel        = "approve_level"
	ActionApproveCompletion   = "approve_completion"
	ActionRejectSubmission    = "reject_submission"
	ActionRemoveLevel         = "remove_level"
	ActionMoveLevel           = "move_level"
	ActionEditTags            = "edit_tags"
	ActionDeleteCompletion    = "delete_completion"
	ActionEquipTitle          = "equip_title"
	ActionUnequipTitle        = "unequip_title"
	ActionAttemptInvalidEquip = "attempt_invalid_equip"
	ActionInvalidTitleReset   = "invalid_equipped_title_reset"
	ActionBan                 = "ban"
	ActionUnban               = "unban"
	ActionBanExpired          = "ban_expired"
	ActionPromoteToMod        = "promote_to_mod"
	ActionEditProfile         = "edit_profile"
)

// AuditEvent is an immutable record of an administrative or rule-engine action.
type AuditEvent struct {
	ID      string         `json:"id"`
	Action  string         `json:"action"`
	Actor   string         `json:"actor"`
	Target  string         `json:"target,omitempty"`
	Details map[string]any `json:"details"`
	TS      int64          `json:"ts"`
}
