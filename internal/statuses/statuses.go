package statuses

// Статусы игры.
const (
	StatusWaitOpponent = "waiting"
	StatusActive       = "active"
	StatusFinished     = "finished"
)

// Причины завершения игры.
const (
	ReasonScoreGoal        = "score_threshold_reached"
	ReasonBoardFullTie     = "board_full_tie"
	ReasonBoardFullDecided = "board_full_decided"
	ReasonAbandoned        = "participant_abandoned"
)

// Режимы игры: человек против человека или против бота.
const (
	ModePvp = "pvp"
	ModeBot = "bot"
)
