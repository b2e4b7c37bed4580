// Package audit records an append-only trail of security relevant MFA
// actions: enrollment started, MFA enabled or disabled, backup codes
// regenerated and every login verification with its outcome.
//
// A Recorder builds Event values and passes them to a Writer. Writers in
// this package:
//
//   - LogWriter writes events as slog records
//   - MemoryWriter keeps them in memory
//   - AsyncWriter batches events in the background for another Writer
//
// The postgres writer lives in pkg/mfa/pgstore next to the credential tables.
//
//	async := audit.NewAsyncWriter(pgstore.NewAuditWriter(pool), audit.AsyncOptions{})
//	defer async.Close(ctx)
//
//	rec := audit.NewRecorder(async, audit.WithRequestIDExtractor(requestid.FromContext))
//	_ = rec.Record(ctx, userID, "mfa.enabled")
//
// Events never contain TOTP secrets, submitted codes or backup codes.
package audit
