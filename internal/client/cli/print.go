package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/keygate/internal/rpc"
)

const dateLayout = "2006-01-02 15:04"

func describeSubscription(s rpc.SubscriptionInfo) string {
	switch {
	case s.Type == "":
		return "none"
	case s.Type == "lifetime":
		return "lifetime"
	case s.ExpiresAt == nil:
		return s.Type
	case s.Active:
		return fmt.Sprintf("%s, expires %s", s.Type, s.ExpiresAt.Local().Format(dateLayout))
	default:
		return fmt.Sprintf("%s, expired %s", s.Type, s.ExpiresAt.Local().Format(dateLayout))
	}
}

func printKeys(w io.Writer, keys []rpc.KeyInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tTYPE\tDAYS\tUSED BY\tUSED AT\tCREATED")
	for _, k := range keys {
		usedBy, usedAt := "-", "-"
		if k.UsedBy != nil {
			usedBy = strconv.FormatInt(*k.UsedBy, 10)
		}
		if k.UsedAt != nil {
			usedAt = formatTime(*k.UsedAt)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			k.ID, k.Code, k.SubscriptionType, k.DurationDays, usedBy, usedAt, formatTime(k.CreatedAt))
	}
	return tw.Flush()
}

func printUsers(w io.Writer, users []rpc.UserInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tUSERNAME\tEMAIL\tHWID\tSUBSCRIPTION\tCREATED")
	for _, u := range users {
		machine := "-"
		if u.HWID != nil {
			machine = shorten(*u.HWID, 12)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			u.UID, u.Username, u.Email, machine, describeSubscription(u.Subscription), formatTime(u.CreatedAt))
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
