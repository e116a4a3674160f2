package domain

// GameID - идентификатор мини-игры
type GameID string

const (
	GameMemory GameID = "memory"
	GameFocus  GameID = "focus"
	GameMath   GameID = "math"
	GameLogic  GameID = "logic"
)

// AllGames lists the games in display order.
var AllGames = []GameID{GameMemory, GameFocus, GameMath, GameLogic}

func (g GameID) Valid() bool {
	switch g {
	case GameMemory, GameFocus, GameMath, GameLogic:
		return true
	}
	return false
}

// RewardID - идентификатор награды (бейджа)
type RewardID string

const (
	RewardCrystalOfMemory RewardID = "crystal_of_memory"
	RewardFlameOfFocus    RewardID = "flame_of_focus"
	RewardStarOfSpeed     RewardID = "star_of_speed"
	RewardBadgeOfLogic    RewardID = "badge_of_logic"
)

var AllRewards = []RewardID{RewardCrystalOfMemory, RewardFlameOfFocus, RewardBadgeOfLogic, RewardStarOfSpeed}

func (r RewardID) Valid() bool {
	switch r {
	case RewardCrystalOfMemory, RewardFlameOfFocus, RewardStarOfSpeed, RewardBadgeOfLogic:
		return true
	}
	return false
}

// FailurePolicy decides what a failed level does to the run.
type FailurePolicy int

const (
	// RetryLevel replays the failed level.
	RetryLevel FailurePolicy = iota
	// EndOnFirstLevel finishes the run when level 1 fails and retries otherwise.
	EndOnFirstLevel
)

// GameInfo - описание игры для клиента и правила начисления очков
type GameInfo struct {
	ID             GameID        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Reward         RewardID      `json:"reward"`
	PointsPerLevel int           `json:"points_per_level"`
	MaxLevel       int           `json:"max_level"`
	OnFailure      FailurePolicy `json:"-"`
}

var catalog = map[GameID]GameInfo{
	GameMemory: {
		ID:             GameMemory,
		Title:          "Memory Matrix",
		Description:    "Remember and reproduce a grid of glowing tiles",
		Reward:         RewardCrystalOfMemory,
		PointsPerLevel: 10,
		MaxLevel:       10,
		OnFailure:      RetryLevel,
	},
	GameFocus: {
		ID:             GameFocus,
		Title:          "Focus Flash",
		Description:    "Tap the correct shape or number before time runs out",
		Reward:         RewardFlameOfFocus,
		PointsPerLevel: 15,
		MaxLevel:       15,
		OnFailure:      EndOnFirstLevel,
	},
	GameMath: {
		ID:             GameMath,
		Title:          "Quick Math",
		Description:    "Solve rapid-fire simple equations under time pressure",
		Reward:         RewardStarOfSpeed,
		PointsPerLevel: 20,
		MaxLevel:       20,
		OnFailure:      RetryLevel,
	},
	GameLogic: {
		ID:             GameLogic,
		Title:          "Logic Paths",
		Description:    "Choose the correct sequence to reach the goal",
		Reward:         RewardBadgeOfLogic,
		PointsPerLevel: 20,
		MaxLevel:       12,
		OnFailure:      RetryLevel,
	},
}

// Info returns the catalog entry for a game.
func Info(g GameID) (GameInfo, bool) {
	info, ok := catalog[g]
	return info, ok
}

// Catalog returns every game in display order.
func Catalog() []GameInfo {
	out := make([]GameInfo, 0, len(AllGames))
	for _, g := range AllGames {
		out = append(out, catalog[g])
	}
	return out
}

// LevelScore returns the points awarded for completing a level.
// Levels outside 1..MaxLevel award nothing.
func (i GameInfo) LevelScore(level int) int {
	if level < 1 || level > i.MaxLevel {
		return 0
	}
	return level * i.PointsPerLevel
}
