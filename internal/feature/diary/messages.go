package diary

const msgHelp = `Calorie diary commands:
/add <food>[, <kcal>] - log what you ate, e.g. /add oatmeal, 150
/remove <id> - delete an entry by its id
/stat - today's total against your daily limit
/daystat - table of today's entries
/longstat - table of everything you have logged
/timezone [hours] - show or set your UTC offset, e.g. /timezone 3
/limit [kcal|off] - show, set or clear your daily limit
/help - this message

Decimal values accept both "." and ",".`

const (
	msgWelcome        = "Welcome! You are registered, every entry you log is counted towards your daily total."
	msgUnknownCommand = "Unknown command. Send /help to see what I understand."
	msgInternalError  = "Something went wrong while handling your message. Please try again."
	msgRegisterFailed = "Database error: could not register you, please try again later."

	msgAddUsage      = "Cannot parse %q. Use /add <food>[, <kcal>], e.g. /add oatmeal, 150"
	msgBadKcal       = "Cannot parse calories %q: expected a number"
	msgAdded         = "Added #%d: %s, %s kcal"
	msgAddedNoKcal   = "Added #%d: %s (kcal not specified)"
	msgAddFailed     = "Database error: could not add %q"
	msgRemoveUsage   = "Cannot parse item id %q. Use /remove <id>"
	msgRemoved       = "Removed #%d: %s"
	msgRemoveFailed  = "Database error: could not remove item %d"
	msgStatFailed    = "Database error: could not load statistics"
	msgSettingFailed = "Database error: could not update your settings"

	msgTimezoneCurrent = "Your timezone: UTC%s"
	msgTimezoneSet     = "Timezone set to UTC%s"
	msgBadTimezone     = "Invalid timezone %q: expected a whole number of hours from 0 to %d"

	msgLimitCurrent = "Daily limit: %s kcal"
	msgLimitUnset   = "Daily limit is not set"
	msgLimitSet     = "Daily limit set to %s kcal"
	msgLimitCleared = "Daily limit cleared"
	msgBadLimit     = "Invalid limit %q: expected a non-negative number or \"off\""

	msgSuperStatHeader = "Users: %d\nItems: %d\n"

	msgKill         = "Shutting down..."
	msgKillPending  = "Shutdown is already in progress"
	msgKillDisabled = "Shutdown is not available"
)
