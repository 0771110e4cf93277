/*
Package offer implements the swap offer catalog.

Owners list skills, services, accommodation or items; other alumni browse
them and open swap requests against them. The catalog owns:
  - validation of offers, including the accommodation invariant
    (property type and at least one guest) and the availability window
  - the owner status policy (see CanTransition); moderators may set any status
  - atomic view/request counters and the running-mean offer rating
  - soft deletion, refused while any request on the offer is still open

Reads go through an optional Cache (redis in production); every write
invalidates the cached copy.
*/
package offer
