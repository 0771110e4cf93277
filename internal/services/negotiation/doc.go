/*
Package negotiation moves swap requests through their lifecycle:

	pending -> accepted | rejected | negotiating
	accepted | negotiating -> confirmed -> in_progress -> completed
	any non-terminal status -> cancelled | disputed

Only one active request may exist per (requester, offer) pair. Each
request carries two append-only logs, messages and negotiation entries,
numbered by a per-request sequence. Accepting a negotiation entry applies
its changes and confirms the request in the same database transaction.

Reaching confirmed opens the swap transaction in the ledger. Completing
or cancelling the request carries the ledger entry along with it.
*/
package negotiation
