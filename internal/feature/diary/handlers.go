package diary

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"kcal_tracker_bot/internal/command"
	"kcal_tracker_bot/internal/domain"
	"kcal_tracker_bot/internal/format"
	"kcal_tracker_bot/internal/logging"
	"kcal_tracker_bot/internal/stattable"
)

var clearLimitWords = map[string]bool{
	"off":  true,
	"none": true,
	"нет":  true,
}

func (d *Dispatcher) add(ctx context.Context, logger *logrus.Entry, userID int64, args string) []Reply {
	parsed, err := command.ParseAdd(args)
	if err != nil {
		return []Reply{plain(fmt.Sprintf(msgAddUsage, args))}
	}

	var kcal *float64
	if parsed.HasKcal() {
		value, err := format.ParseLenientFloat(parsed.KcalText)
		if err != nil {
			return []Reply{plain(fmt.Sprintf(msgBadKcal, parsed.KcalText))}
		}
		kcal = &value
	}

	at := d.now().UTC().Truncate(time.Second)
	item, err := d.store.AddConsumedItem(ctx, userID, parsed.Name, kcal, at)
	if err != nil {
		logStoreError(logger, "add_consumed", err)
		return []Reply{plain(fmt.Sprintf(msgAddFailed, parsed.Name))}
	}

	logger.WithFields(logging.Fields{
		"event":   "item_added",
		"item_id": item.ID,
	}).Info("consumed item added")

	confirmation := fmt.Sprintf(msgAddedNoKcal, item.ID, item.Text)
	if item.Kcal != nil {
		confirmation = fmt.Sprintf(msgAdded, item.ID, item.Text, format.Kcal(*item.Kcal))
	}

	return append([]Reply{plain(confirmation)}, d.shortStat(ctx, logger, userID)...)
}

func (d *Dispatcher) remove(ctx context.Context, logger *logrus.Entry, userID int64, args string, owner *int64) []Reply {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return []Reply{plain(fmt.Sprintf(msgRemoveUsage, args))}
	}

	item, err := d.store.RemoveConsumedItem(ctx, id, owner)
	if err != nil {
		logStoreError(logger.WithField("item_id", id), "remove_consumed", err)
		return []Reply{plain(fmt.Sprintf(msgRemoveFailed, id))}
	}

	logger.WithFields(logging.Fields{
		"event":   "item_removed",
		"item_id": item.ID,
		"forced":  owner == nil,
	}).Info("consumed item removed")

	return []Reply{plain(fmt.Sprintf(msgRemoved, item.ID, item.Text))}
}

func (d *Dispatcher) shortStat(ctx context.Context, logger *logrus.Entry, userID int64) []Reply {
	tz, err := d.store.TimezoneOffset(ctx, userID)
	if err != nil {
		logStoreError(logger, "timezone_offset", err)
		return []Reply{plain(msgStatFailed)}
	}

	total, err := d.store.ConsumedSum(ctx, d.today(tz), userID)
	if err != nil {
		logStoreError(logger, "consumed_sum", err)
		return []Reply{plain(msgStatFailed)}
	}

	limit, err := d.store.MaxKcal(ctx, userID)
	if err != nil {
		logStoreError(logger, "max_kcal", err)
		return []Reply{plain(msgStatFailed)}
	}

	return []Reply{{Text: stattable.ShortStat(total, limit), Buttons: quickActions()}}
}

func (d *Dispatcher) dayStat(ctx context.Context, logger *logrus.Entry, userID int64) []Reply {
	tz, err := d.store.TimezoneOffset(ctx, userID)
	if err != nil {
		logStoreError(logger, "timezone_offset", err)
		return []Reply{plain(msgStatFailed)}
	}

	items, err := d.store.ConsumedItems(ctx, d.today(tz), &userID)
	if err != nil {
		logStoreError(logger, "consumed_items", err)
		return []Reply{plain(msgStatFailed)}
	}

	return []Reply{tableReply("", items, stattable.Options{
		Columns:        stattable.ItemColumns,
		TimezoneOffset: tz,
		TimePattern:    format.PatternShort,
	})}
}

func (d *Dispatcher) longStat(ctx context.Context, logger *logrus.Entry, userID int64) []Reply {
	tz, err := d.store.TimezoneOffset(ctx, userID)
	if err != nil {
		logStoreError(logger, "timezone_offset", err)
		return []Reply{plain(msgStatFailed)}
	}

	items, err := d.store.ConsumedItems(ctx, domain.AllTime(), &userID)
	if err != nil {
		logStoreError(logger, "consumed_items", err)
		return []Reply{plain(msgStatFailed)}
	}

	return []Reply{tableReply("", items, stattable.Options{
		Columns:        stattable.ItemColumns,
		TimezoneOffset: tz,
		TimePattern:    format.PatternLong,
	})}
}

func (d *Dispatcher) superStat(ctx context.Context, logger *logrus.Entry, userID int64) []Reply {
	tz, err := d.store.TimezoneOffset(ctx, userID)
	if err != nil {
		logStoreError(logger, "timezone_offset", err)
		return []Reply{plain(msgStatFailed)}
	}

	users, err := d.store.CountUsers(ctx)
	if err != nil {
		logStoreError(logger, "count_users", err)
		return []Reply{plain(msgStatFailed)}
	}

	consumed, err := d.store.CountConsumed(ctx)
	if err != nil {
		logStoreError(logger, "count_consumed", err)
		return []Reply{plain(msgStatFailed)}
	}

	items, err := d.store.ConsumedItems(ctx, domain.AllTime(), nil)
	if err != nil {
		logStoreError(logger, "consumed_items", err)
		return []Reply{plain(msgStatFailed)}
	}

	logger.WithFields(logging.Fields{
		"event": "superstat",
		"items": len(items),
	}).Info("rendered all-users statistics")

	return []Reply{tableReply(fmt.Sprintf(msgSuperStatHeader, users, consumed), items, stattable.Options{
		Columns:        stattable.AllUsersColumns,
		TimezoneOffset: tz,
		TimePattern:    format.PatternLong,
	})}
}

func (d *Dispatcher) timezone(ctx context.Context, logger *logrus.Entry, userID int64, args string) []Reply {
	value := strings.TrimSpace(args)
	if value == "" {
		tz, err := d.store.TimezoneOffset(ctx, userID)
		if err != nil {
			logStoreError(logger, "timezone_offset", err)
			return []Reply{plain(msgStatFailed)}
		}
		return []Reply{plain(fmt.Sprintf(msgTimezoneCurrent, format.Offset(tz)))}
	}

	// Negative offsets are rejected even though rendering supports them.
	offset, err := strconv.Atoi(value)
	if err != nil || offset < 0 || offset > domain.MaxTimezoneOffset {
		return []Reply{plain(fmt.Sprintf(msgBadTimezone, value, domain.MaxTimezoneOffset))}
	}

	if err := d.store.SetTimezoneOffset(ctx, userID, offset); err != nil {
		logStoreError(logger, "set_timezone_offset", err)
		return []Reply{plain(msgSettingFailed)}
	}

	logger.WithFields(logging.Fields{
		"event":    "timezone_set",
		"timezone": offset,
	}).Info("timezone updated")

	return []Reply{plain(fmt.Sprintf(msgTimezoneSet, format.Offset(offset)))}
}

func (d *Dispatcher) limit(ctx context.Context, logger *logrus.Entry, userID int64, args string) []Reply {
	value := strings.TrimSpace(args)
	if value == "" {
		limit, err := d.store.MaxKcal(ctx, userID)
		if err != nil {
			logStoreError(logger, "max_kcal", err)
			return []Reply{plain(msgStatFailed)}
		}
		if limit == nil {
			return []Reply{plain(msgLimitUnset)}
		}
		return []Reply{plain(fmt.Sprintf(msgLimitCurrent, format.Kcal(*limit)))}
	}

	var limit *float64
	if !clearLimitWords[strings.ToLower(value)] {
		parsed, err := format.ParseLenientFloat(value)
		if err != nil || parsed < 0 {
			return []Reply{plain(fmt.Sprintf(msgBadLimit, value))}
		}
		limit = &parsed
	}

	if err := d.store.SetMaxKcal(ctx, userID, limit); err != nil {
		logStoreError(logger, "set_max_kcal", err)
		return []Reply{plain(msgSettingFailed)}
	}

	logger.WithFields(logging.Fields{
		"event":   "limit_set",
		"cleared": limit == nil,
	}).Info("daily limit updated")

	if limit == nil {
		return []Reply{plain(msgLimitCleared)}
	}
	return []Reply{plain(fmt.Sprintf(msgLimitSet, format.Kcal(*limit)))}
}

func (d *Dispatcher) kill(logger *logrus.Entry) []Reply {
	if d.shutdown == nil {
		return []Reply{plain(msgKillDisabled)}
	}

	if !d.shutdown.RequestAfter(d.shutdownDelay) {
		return []Reply{plain(msgKillPending)}
	}

	logger.WithFields(logging.Fields{
		"event": "shutdown_requested",
		"delay": d.shutdownDelay.String(),
	}).Warn("admin requested shutdown")

	return []Reply{plain(msgKill)}
}

// today is [local midnight, now) for a user at offset tz. Stored dates have
// whole-second resolution, so the end is rounded up to keep entries logged
// during the current second.
func (d *Dispatcher) today(tz int) domain.Range {
	now := d.now().UTC()
	end := now.Truncate(time.Second).Add(time.Second)
	return domain.Between(format.DayStartUTC(now, tz), end)
}

func tableReply(header string, items []domain.ConsumedItem, opts stattable.Options) Reply {
	var total float64
	for _, item := range items {
		total += item.KcalValue()
	}

	text := header + stattable.Summary(opts.TimezoneOffset, total) + "\n" +
		stattable.Preformatted(stattable.Render(items, opts))

	return Reply{Text: text, HTML: true}
}

func logStoreError(logger *logrus.Entry, operation string, err error) {
	logger.WithFields(logging.Fields{
		"event":     "store_error",
		"operation": operation,
	}).WithError(err).Error("store operation failed")
}
