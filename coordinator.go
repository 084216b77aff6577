package mpxfer

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/derektruong/mpxfer/catalog"
	"github.com/derektruong/mpxfer/executor"
	"github.com/derektruong/mpxfer/source"
	"github.com/derektruong/mpxfer/transaction"
)

// abortTimeout bounds the best-effort remote abort issued on
// cancellation and retry.
const abortTimeout = 30 * time.Second

// startLocked moves an idle task toward Initiating: it either occupies
// an admission slot and spawns the run loop, or joins the FIFO queue
// when all slots are taken. Callers hold m.mu.
func (m *manager) startLocked(task *uploadTask) {
	if m.activeCount >= m.maxConcurrentUploads {
		task.queued = true
		m.queue = append(m.queue, task.id)
		m.logger.Info("queued upload task, at concurrency limit",
			"taskID", task.id, "queueLength", len(m.queue))
		return
	}
	m.beginLocked(task)
}

// beginLocked occupies a slot and spawns the task's run loop. Callers
// hold m.mu.
func (m *manager) beginLocked(task *uploadTask) {
	m.activeCount++
	task.queued = false
	task.state = StateInitiating
	task.startedAt = time.Now()

	runCtx, cancel := context.WithCancel(m.rootCtx)
	task.cancel = cancel
	m.emitLocked(task)

	m.wg.Add(1)
	go m.runTask(runCtx, task)
}

// admitNextLocked hands the freed slot to the oldest queued task.
// Callers hold m.mu.
func (m *manager) admitNextLocked() {
	for len(m.queue) > 0 {
		id := m.queue[0]
		m.queue = m.queue[1:]
		task := m.tasks[id]
		if task == nil || !task.queued || task.state != StateIdle {
			// dismissed or cancelled while waiting
			continue
		}
		m.beginLocked(task)
		return
	}
}

// cancelLocked implements the cancellation contract: abort the
// in-flight transfer, best-effort abort the remote session, free the
// admission slot synchronously. Idempotent on terminal tasks. Callers
// hold m.mu.
func (m *manager) cancelLocked(task *uploadTask) {
	if task.state.Terminal() {
		return
	}

	wasActive := task.state.Active()
	if task.queued {
		task.queued = false
		for i, id := range m.queue {
			if id == task.id {
				m.queue = append(m.queue[:i], m.queue[i+1:]...)
				break
			}
		}
	}
	task.state = StateCancelled
	if task.cancel != nil {
		task.cancel()
		task.cancel = nil
	}
	if task.remoteTransactionID != "" {
		m.cache.DropTransaction(task.remoteTransactionID)
		m.abortRemote(task.remoteTransactionID)
	}
	m.emitLocked(task)
	m.logger.Info("cancelled upload task", "taskID", task.id)

	if wasActive {
		m.activeCount--
		m.admitNextLocked()
	}
}

// abortRemote notifies the store to discard the session. Failures are
// logged, never surfaced: a leaked session does not corrupt any
// client-visible state and the store's cleanup sweep collects it.
func (m *manager) abortRemote(transactionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
		defer cancel()
		if err := m.txn.Abort(ctx, transactionID); err != nil {
			m.logger.Info("best-effort remote abort failed",
				"transactionID", transactionID, "errorMessage", err.Error())
		}
	}()
}

// finishTask applies a terminal transition from the run loop. It is a
// no-op when a concurrent cancel already terminated the task.
func (m *manager) finishTask(task *uploadTask, state TaskState, taskErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.state.Terminal() {
		return
	}
	task.state = state
	task.lastError = taskErr
	task.partTransferred = 0
	if task.cancel != nil {
		task.cancel()
		task.cancel = nil
	}
	if task.remoteTransactionID != "" && state != StateCompleted {
		m.cache.DropTransaction(task.remoteTransactionID)
	}
	m.emitLocked(task)

	m.activeCount--
	m.admitNextLocked()
}

// runTask drives one task through initiate, serial part transfers and
// finalize. It owns no state directly; every mutation goes through the
// manager mutex so facade calls observe consistent tasks.
func (m *manager) runTask(ctx context.Context, task *uploadTask) {
	defer m.wg.Done()

	transactionID, err := m.txn.Initiate(ctx, task.objectKey, task.info.ContentType)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Info("failed to initiate upload transaction",
			"taskID", task.id, "objectKey", task.objectKey, "errorMessage", err.Error())
		m.finishTask(task, StateFailed, err)
		return
	}

	totalParts := int32(PartCount(task.info.Size, m.partSize))

	m.mu.Lock()
	if task.state.Terminal() {
		// cancelled during initiate: the session just opened is now
		// orphaned on the remote side, discard it
		m.mu.Unlock()
		m.abortRemote(transactionID)
		return
	}
	task.remoteTransactionID = transactionID
	task.totalParts = totalParts
	task.nextPartNumber = 1
	task.state = StateTransferring
	m.emitLocked(task)
	m.mu.Unlock()

	m.logger.Info("started upload transfer",
		"taskID", task.id, "transactionID", transactionID,
		"totalParts", totalParts, "size", task.info.Size)

	// warm the first lookahead window while part 1 transfers
	go m.cache.Prefetch(ctx, transactionID, m.prefetchNumbers(1, totalParts), m.fetchAuthorization)

	for partNumber := int32(1); partNumber <= totalParts; partNumber++ {
		tag, partErr := m.transferPart(ctx, task, partNumber)
		if partErr != nil {
			if ctx.Err() != nil || errors.Is(partErr, executor.ErrAborted) {
				return
			}
			m.logger.Info("part transfer failed permanently",
				"taskID", task.id, "partNumber", partNumber, "errorMessage", partErr.Error())
			m.finishTask(task, StateFailed, partErr)
			return
		}
		m.recordPartDone(task, partNumber, tag)

		// keep the lookahead window ahead of the in-flight part
		if next := partNumber + m.prefetchWindow; next <= totalParts {
			go m.cache.Prefetch(ctx, transactionID, []int32{next}, m.fetchAuthorization)
		}
	}

	m.finalizeTask(ctx, task)
}

// transferPart moves one part with bounded retries. Transient transport
// failures and expired authorizations re-enter the same step; an
// expired authorization additionally invalidates the cache entry so the
// next attempt fetches a fresh one.
func (m *manager) transferPart(
	ctx context.Context,
	task *uploadTask,
	partNumber int32,
) (tag string, err error) {
	start, end := PartRange(int64(partNumber), m.partSize, task.info.Size)
	transactionID := task.remoteTransactionID

	err = retry.Do(
		func() error {
			auth, authErr := m.cache.GetOrFetch(ctx, transactionID, partNumber, m.fetchAuthorization)
			if authErr != nil {
				return authErr
			}

			payload, openErr := task.file.OpenRange(ctx, start, end)
			if openErr != nil {
				return retry.Unrecoverable(openErr)
			}
			defer payload.Close()

			partTag, xferErr := m.exec.Transfer(ctx, auth, payload, end-start, func(bytesTransferred int64) {
				m.recordPartProgress(task, bytesTransferred)
			})
			if xferErr != nil {
				if errors.Is(xferErr, executor.ErrAuthorizationExpired) {
					m.cache.Invalidate(transactionID, partNumber)
				}
				return xferErr
			}
			tag = partTag
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(m.retryConfig.MaxRetryAttempts)),
		retry.Delay(m.retryConfig.InitialDelay),
		retry.MaxDelay(m.retryConfig.MaxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, executor.ErrAborted) &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, source.ErrRangeInvalid)
		}),
		retry.OnRetry(func(n uint, err error) {
			m.resetPartProgress(task)
			m.logger.Info("retrying part transfer",
				"taskID", task.id, "partNumber", partNumber,
				"errorMessage", err.Error(), "retryAttempts", n+1)
		}),
	)
	return
}

// fetchAuthorization adapts the transaction's AuthorizePart for the
// authorization cache.
func (m *manager) fetchAuthorization(
	ctx context.Context,
	transactionID string,
	partNumber int32,
) (transaction.PartAuthorization, error) {
	return m.txn.AuthorizePart(ctx, transactionID, partNumber)
}

// recordPartProgress tracks bytes moved for the in-flight part. The
// executor throttles how often this fires.
func (m *manager) recordPartProgress(task *uploadTask, bytesTransferred int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.state != StateTransferring {
		return
	}
	task.partTransferred = bytesTransferred
	m.emitLocked(task)
}

// resetPartProgress discards a failed attempt's byte count so the
// snapshot does not overstate progress during the backoff window.
func (m *manager) resetPartProgress(task *uploadTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.state != StateTransferring {
		return
	}
	task.partTransferred = 0
	m.emitLocked(task)
}

// recordPartDone applies a successful part transfer: the (number, tag)
// pair joins completedParts and the cursor advances.
func (m *manager) recordPartDone(task *uploadTask, partNumber int32, tag string) {
	start, end := PartRange(int64(partNumber), m.partSize, task.info.Size)

	m.mu.Lock()
	defer m.mu.Unlock()
	if task.state.Terminal() {
		return
	}
	task.completedParts = append(task.completedParts, transaction.CompletedPart{
		Number:       partNumber,
		IntegrityTag: tag,
	})
	task.completedBytes += end - start
	task.partTransferred = 0
	if partNumber == task.nextPartNumber {
		task.nextPartNumber = partNumber + 1
	}
	m.emitLocked(task)
}

// finalizeTask completes the remote session once every part is done.
func (m *manager) finalizeTask(ctx context.Context, task *uploadTask) {
	m.mu.Lock()
	if task.state.Terminal() {
		m.mu.Unlock()
		return
	}
	if int32(len(task.completedParts)) != task.totalParts {
		// must be unreachable given the serial transfer loop; finalize
		// with a gap would corrupt the remote object
		err := transaction.VerifyPartSequence(task.completedParts)
		m.mu.Unlock()
		m.finishTask(task, StateFailed, err)
		return
	}
	task.state = StateFinalizing
	parts := append([]transaction.CompletedPart(nil), task.completedParts...)
	transactionID := task.remoteTransactionID
	m.emitLocked(task)
	m.mu.Unlock()

	if err := transaction.VerifyPartSequence(parts); err != nil {
		m.finishTask(task, StateFailed, err)
		return
	}

	objectID, err := m.txn.Finalize(ctx, transactionID, parts)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Info("failed to finalize upload transaction",
			"taskID", task.id, "transactionID", transactionID, "errorMessage", err.Error())
		m.finishTask(task, StateFailed, err)
		return
	}

	m.mu.Lock()
	if task.state.Terminal() {
		m.mu.Unlock()
		return
	}
	task.state = StateCompleted
	task.remoteObjectID = objectID
	task.lastError = nil
	task.partTransferred = 0
	if task.cancel != nil {
		task.cancel()
		task.cancel = nil
	}
	m.cache.DropTransaction(transactionID)
	m.emitLocked(task)
	m.activeCount--
	m.admitNextLocked()
	m.mu.Unlock()

	m.logger.Info("finished upload",
		"taskID", task.id, "objectID", objectID, "size", task.info.Size)

	m.registerCompleted(task, objectID)
}

// registerCompleted notifies the catalog about the finished object.
// Registration is best-effort and not transactional with finalize; a
// crash in between leaves a finished object with no catalog row.
func (m *manager) registerCompleted(task *uploadTask, objectID string) {
	if m.catalog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()
	entry := catalog.Entry{
		Name:        task.info.Name,
		Size:        task.info.Size,
		ContentType: task.info.ContentType,
		FolderID:    task.folderID,
		Owner:       task.principal,
		ObjectID:    objectID,
		CompletedAt: time.Now(),
	}
	if err := m.catalog.RegisterObject(ctx, entry); err != nil {
		m.logger.Error(err, "failed to register catalog entry",
			"taskID", task.id, "objectID", objectID)
	}
}

// prefetchNumbers lists the part numbers of the lookahead window
// starting at from.
func (m *manager) prefetchNumbers(from, totalParts int32) []int32 {
	numbers := make([]int32, 0, m.prefetchWindow)
	for n := from; n < from+m.prefetchWindow && n <= totalParts; n++ {
		numbers = append(numbers, n)
	}
	return numbers
}
