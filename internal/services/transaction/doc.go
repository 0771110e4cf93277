/*
Package transaction is the swap ledger: one SwapTransaction per confirmed
swap request, recording what each participant gives and receives.

The value exchange (total, difference, balanced within 20% of the total)
is recomputed on every write, so the stored summary always matches the
participants. Feedback is one entry per ordered (from, to) pair, enforced
by a unique index, and each accepted entry is folded into the recipient's
rating (and the offer's, when the recipient owns it).

Usage:

	ledger := transaction.NewService(repo, users, ratings, policy, dispatcher, nil, log)

	tx, err := ledger.Open(ctx, request, offer)
	fb, err := ledger.AddFeedback(ctx, actor, tx.ID, transaction.FeedbackInput{
	    ToUserID: request.OfferOwnerID.String(),
	    Rating:   5,
	})

Status changes are optimistic: a stale read fails with a concurrency error
and the caller is expected to reload and retry.
*/
package transaction
