// Package engagement implements the endpoint engagement bookkeeping behind
// the contact mailer.
//
// Every send, open and click is recorded as a read-merge-write against the
// endpoint store: the current record is fetched, a pure merge produces the
// next record, and the result is written back as a full upsert. The store
// offers no conditional write, so two requests touching the same endpoint
// at the same time can lose an update (last writer wins on the whole
// record). That behavior is intentional; Service.WithLocker opts in to
// serialized updates when a deployment needs exact counters.
//
// The service layer depends on the Repository interface defined in
// repository.go. It never imports net/http or a storage driver directly.
package engagement
