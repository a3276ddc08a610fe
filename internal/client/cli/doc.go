// Package cli implements the keygate launcher's command line.
//
// Without a subcommand the launcher resumes the cached session and, if that
// does not yield an active subscription, asks for credentials and checks them
// together with this machine's hardware id. Subcommands:
//
//	register                 create an account
//	check                    verify credentials and hardware, cache the session
//	resume                   verify the cached session only
//	activate CODE            redeem an activation key
//	passwd                   change the password
//	logout                   forget the cached session
//	admin issue-key TYPE DAYS
//	admin keys | users
//	admin reset-hwid UID | delete-user UID
//	admin wipe
package cli
