package command

import "strings"

// Action identifies what the dispatcher does for a keyword.
type Action string

// Actions understood by the dispatcher. ActionUnknown covers every other keyword.
const (
	ActionHelp        Action = "help"
	ActionAdd         Action = "add"
	ActionRemove      Action = "remove"
	ActionRemoveForce Action = "remove_force"
	ActionStat        Action = "stat"
	ActionDayStat     Action = "daystat"
	ActionLongStat    Action = "longstat"
	ActionSuperStat   Action = "superstat"
	ActionTimezone    Action = "timezone"
	ActionLimit       Action = "limit"
	ActionKill        Action = "kill"
	ActionUnknown     Action = "unknown"
)

// aliases maps lower-cased keywords to actions. Cyrillic entries cover both
// Russian words and Latin commands typed phonetically in Cyrillic.
var aliases = map[string]Action{
	"help": ActionHelp, "start": ActionHelp, "h": ActionHelp,
	"помощь": ActionHelp, "хелп": ActionHelp, "старт": ActionHelp,

	"add": ActionAdd, "a": ActionAdd, "eat": ActionAdd,
	"адд": ActionAdd, "добавить": ActionAdd, "съел": ActionAdd,

	"remove": ActionRemove, "rm": ActionRemove, "del": ActionRemove, "delete": ActionRemove,
	"ремув": ActionRemove, "удалить": ActionRemove,

	"removeforce": ActionRemoveForce, "remove_force": ActionRemoveForce, "rmf": ActionRemoveForce,
	"ремувфорс": ActionRemoveForce,

	"stat": ActionStat, "s": ActionStat, "today": ActionStat,
	"стат": ActionStat, "сегодня": ActionStat,

	"daystat": ActionDayStat, "ds": ActionDayStat, "day": ActionDayStat,
	"дейстат": ActionDayStat, "день": ActionDayStat,

	"longstat": ActionLongStat, "ls": ActionLongStat, "all": ActionLongStat,
	"лонгстат": ActionLongStat, "всё": ActionLongStat, "все": ActionLongStat,

	"superstat": ActionSuperStat, "суперстат": ActionSuperStat,

	"timezone": ActionTimezone, "tz": ActionTimezone,
	"таймзона": ActionTimezone, "пояс": ActionTimezone,

	"limit": ActionLimit, "max": ActionLimit,
	"лимит": ActionLimit,

	"kill": ActionKill, "killmeplease": ActionKill,
	"килл": ActionKill, "киллмиплиз": ActionKill,
}

var adminOnly = map[Action]bool{
	ActionRemoveForce: true,
	ActionSuperStat:   true,
	ActionKill:        true,
}

// Resolve maps a keyword to its action, case-insensitively.
func Resolve(keyword string) Action {
	if action, ok := aliases[strings.ToLower(strings.TrimSpace(keyword))]; ok {
		return action
	}
	return ActionUnknown
}

// AdminOnly reports whether the action is restricted to the bot owner.
func (a Action) AdminOnly() bool {
	return adminOnly[a]
}
