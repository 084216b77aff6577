package mpxfer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/derektruong/mpxfer"
	"github.com/derektruong/mpxfer/catalog"
	mock_catalog "github.com/derektruong/mpxfer/catalog/mock"
	"github.com/derektruong/mpxfer/executor"
	mock_executor "github.com/derektruong/mpxfer/executor/mock"
	"github.com/derektruong/mpxfer/source/sourcetest"
	"github.com/derektruong/mpxfer/transaction"
	mock_transaction "github.com/derektruong/mpxfer/transaction/mock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

const testPartSize = int64(5 * 1024 * 1024)

var _ = Describe("Manager", func() {
	var (
		mockCtrl *gomock.Controller
		mockTxn  *mock_transaction.MockTransaction
		mockExec *mock_executor.MockExecutor
		mgr      mpxfer.Manager
	)

	newManager := func(options ...mpxfer.Option) mpxfer.Manager {
		base := []mpxfer.Option{
			mpxfer.WithIdentity(mpxfer.StaticIdentity("alice")),
			mpxfer.WithRetryConfig(mpxfer.RetryConfig{
				MaxRetryAttempts: 3,
				InitialDelay:     time.Millisecond,
				MaxDelay:         5 * time.Millisecond,
			}),
		}
		m := mpxfer.NewManager(GinkgoLogr, mockTxn, mockExec, append(base, options...)...)
		DeferCleanup(m.Close)
		return m
	}

	// allowAuthorize satisfies any authorization demand, including the
	// coordinator's lookahead prefetches.
	allowAuthorize := func() {
		mockTxn.EXPECT().
			AuthorizePart(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, transactionID string, partNumber int32) (transaction.PartAuthorization, error) {
				return transaction.PartAuthorization{
					URL:        fmt.Sprintf("https://store.test/%s/%d", transactionID, partNumber),
					PartNumber: partNumber,
					ExpiresAt:  time.Now().Add(time.Hour),
				}, nil
			}).
			AnyTimes()
	}

	taskState := func(m mpxfer.Manager, taskID string) mpxfer.TaskState {
		for _, task := range m.Snapshot().Tasks {
			if task.ID == taskID {
				return task.State
			}
		}
		return mpxfer.TaskState(-1)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		mockTxn = mock_transaction.NewMockTransaction(mockCtrl)
		mockExec = mock_executor.NewMockExecutor(mockCtrl)
	})

	Describe("Add", func() {
		BeforeEach(func() {
			mgr = newManager()
		})

		It("should create an idle task for a valid file", func(ctx context.Context) {
			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			Expect(taskID).NotTo(BeEmpty())

			snap := mgr.Snapshot()
			Expect(snap.Tasks).To(HaveLen(1))
			Expect(snap.Tasks[0].State).To(Equal(mpxfer.StateIdle))
			Expect(snap.HasIdle).To(BeTrue())
			Expect(snap.HasActive).To(BeFalse())
		}, NodeTimeout(10*time.Second))

		It("should reject a file violating the configured policy", func(ctx context.Context) {
			mgr = newManager(mpxfer.WithMaxFileSize(512))
			_, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).To(MatchError(mpxfer.ErrMaxFileSizeExceeded(512, 1024)))
			Expect(mgr.Snapshot().Tasks).To(BeEmpty())
		}, NodeTimeout(10*time.Second))

		It("should reject a command without a file", func(ctx context.Context) {
			_, err := mgr.Add(ctx, mpxfer.AddCommand{})
			Expect(err).To(HaveOccurred())
		}, NodeTimeout(10*time.Second))

		It("should reject uploads when no acting principal is available", func(ctx context.Context) {
			mgr = mpxfer.NewManager(GinkgoLogr, mockTxn, mockExec)
			DeferCleanup(mgr.Close)
			_, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).To(MatchError(mpxfer.ErrUnauthorized))
		}, NodeTimeout(10*time.Second))

		It("should scope the destination key under the acting principal", func(ctx context.Context) {
			initiated := make(chan string, 1)
			mockTxn.EXPECT().
				Initiate(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, key, _ string) (string, error) {
					initiated <- key
					return "txn-1", nil
				})
			allowAuthorize()
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("tag-1", nil)
			mockTxn.EXPECT().
				Finalize(gomock.Any(), "txn-1", gomock.Any()).
				Return("bucket/key", nil)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(initiated).WithTimeout(5 * time.Second).
				Should(Receive(HavePrefix("alice/")))
			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(10*time.Second))
	})

	Describe("single-part upload", func() {
		BeforeEach(func() {
			mgr = newManager()
		})

		It("should run initiate, one transfer and finalize in order", func(ctx context.Context) {
			file := sourcetest.FileFactory(1024)
			allowAuthorize()
			gomock.InOrder(
				mockTxn.EXPECT().
					Initiate(gomock.Any(), gomock.Any(), file.Info().ContentType).
					Return("txn-1", nil),
				mockExec.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any(), int64(1024), gomock.Any()).
					DoAndReturn(func(_ context.Context, auth transaction.PartAuthorization, payload io.Reader, size int64, _ executor.ProgressFunc) (string, error) {
						Expect(auth.PartNumber).To(Equal(int32(1)))
						content, err := io.ReadAll(payload)
						Expect(err).NotTo(HaveOccurred())
						Expect(content).To(Equal(file.Bytes()))
						return "tag-1", nil
					}),
				mockTxn.EXPECT().
					Finalize(gomock.Any(), "txn-1", []transaction.CompletedPart{
						{Number: 1, IntegrityTag: "tag-1"},
					}).
					Return("bucket/alice/object", nil),
			)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: file})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateCompleted))

			snap := mgr.Snapshot()
			Expect(snap.Tasks[0].ProgressPercent).To(Equal(100))
			Expect(snap.Tasks[0].ObjectID).To(Equal("bucket/alice/object"))
			Expect(snap.HasCompleted).To(BeTrue())
		}, NodeTimeout(10*time.Second))

		It("should upload a zero-byte file as one empty part", func(ctx context.Context) {
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), int64(0), gomock.Any()).
				Return("tag-empty", nil)
			mockTxn.EXPECT().
				Finalize(gomock.Any(), "txn-1", []transaction.CompletedPart{
					{Number: 1, IntegrityTag: "tag-empty"},
				}).
				Return("bucket/empty", nil)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(10*time.Second))
	})

	Describe("multi-part upload", func() {
		BeforeEach(func() {
			mgr = newManager()
		})

		It("should transfer parts serially and finalize with ordered tags", func(ctx context.Context) {
			size := 2*testPartSize + 4096
			file := sourcetest.FileFactory(size)
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)

			var transferredOrder []int32
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, auth transaction.PartAuthorization, _ io.Reader, size int64, _ executor.ProgressFunc) (string, error) {
					transferredOrder = append(transferredOrder, auth.PartNumber)
					if auth.PartNumber < 3 {
						Expect(size).To(Equal(testPartSize))
					} else {
						Expect(size).To(Equal(int64(4096)))
					}
					return fmt.Sprintf("tag-%d", auth.PartNumber), nil
				}).
				Times(3)

			mockTxn.EXPECT().
				Finalize(gomock.Any(), "txn-1", []transaction.CompletedPart{
					{Number: 1, IntegrityTag: "tag-1"},
					{Number: 2, IntegrityTag: "tag-2"},
					{Number: 3, IntegrityTag: "tag-3"},
				}).
				Return("bucket/multi", nil)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: file})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(10 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
			Expect(transferredOrder).To(Equal([]int32{1, 2, 3}))

			snap := mgr.Snapshot()
			Expect(snap.Tasks[0].TotalParts).To(Equal(int32(3)))
			Expect(snap.Tasks[0].CompletedParts).To(Equal(int32(3)))
		}, NodeTimeout(30*time.Second))

		It("should retry a transient part failure and still finalize", func(ctx context.Context) {
			size := 2*testPartSize + 4096
			file := sourcetest.FileFactory(size)
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)

			var mu sync.Mutex
			failuresLeft := 2
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, auth transaction.PartAuthorization, _ io.Reader, _ int64, _ executor.ProgressFunc) (string, error) {
					mu.Lock()
					defer mu.Unlock()
					if auth.PartNumber == 2 && failuresLeft > 0 {
						failuresLeft--
						return "", &executor.TransferError{StatusCode: 500, Err: errors.New("backend hiccup")}
					}
					return fmt.Sprintf("tag-%d", auth.PartNumber), nil
				}).
				Times(5)

			mockTxn.EXPECT().
				Finalize(gomock.Any(), "txn-1", []transaction.CompletedPart{
					{Number: 1, IntegrityTag: "tag-1"},
					{Number: 2, IntegrityTag: "tag-2"},
					{Number: 3, IntegrityTag: "tag-3"},
				}).
				Return("bucket/multi", nil)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: file})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(10 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(30*time.Second))

		It("should discard a failed attempt's progress before retrying the part", func(ctx context.Context) {
			file := sourcetest.FileFactory(1024)
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)

			var mu sync.Mutex
			firstAttempt := true
			firstFailed := make(chan struct{})
			release := make(chan struct{})
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ transaction.PartAuthorization, _ io.Reader, size int64, onProgress executor.ProgressFunc) (string, error) {
					mu.Lock()
					first := firstAttempt
					firstAttempt = false
					mu.Unlock()
					if first {
						onProgress(size / 2)
						close(firstFailed)
						return "", &executor.TransferError{StatusCode: 500, Err: errors.New("backend hiccup")}
					}
					<-release
					return "tag-1", nil
				}).
				Times(2)
			mockTxn.EXPECT().Finalize(gomock.Any(), "txn-1", gomock.Any()).Return("bucket/steady", nil)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: file})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			progress := func() int {
				for _, task := range mgr.Snapshot().Tasks {
					if task.ID == taskID {
						return task.ProgressPercent
					}
				}
				return -1
			}

			// the failed attempt reported half the part; the backoff
			// window must not keep showing those bytes
			Eventually(firstFailed).WithTimeout(5 * time.Second).Should(BeClosed())
			Eventually(progress).WithTimeout(5 * time.Second).Should(BeZero())

			close(release)
			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(10 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(30*time.Second))

		It("should re-authorize a part whose authorization expired mid-transfer", func(ctx context.Context) {
			file := sourcetest.FileFactory(1024)
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)

			var mu sync.Mutex
			authCalls := 0
			mockTxn.EXPECT().
				AuthorizePart(gomock.Any(), "txn-1", int32(1)).
				DoAndReturn(func(_ context.Context, transactionID string, partNumber int32) (transaction.PartAuthorization, error) {
					mu.Lock()
					defer mu.Unlock()
					authCalls++
					return transaction.PartAuthorization{
						URL:        fmt.Sprintf("https://store.test/%s/%d/%d", transactionID, partNumber, authCalls),
						PartNumber: partNumber,
						ExpiresAt:  time.Now().Add(time.Hour),
					}, nil
				}).
				Times(2)

			gomock.InOrder(
				mockExec.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", executor.ErrAuthorizationExpired),
				mockExec.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, auth transaction.PartAuthorization, _ io.Reader, _ int64, _ executor.ProgressFunc) (string, error) {
						// the second attempt must carry a fresh authorization
						Expect(auth.URL).To(HaveSuffix("/2"))
						return "tag-1", nil
					}),
			)
			mockTxn.EXPECT().
				Finalize(gomock.Any(), "txn-1", gomock.Any()).
				Return("bucket/key", nil)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: file})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(10 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(30*time.Second))
	})

	Describe("failure and retry", func() {
		BeforeEach(func() {
			mgr = newManager()
		})

		It("should fail the task after exhausting part retries", func(ctx context.Context) {
			file := sourcetest.FileFactory(1024)
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("", &executor.TransferError{StatusCode: 500, Err: errors.New("backend down")}).
				Times(3)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: file})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(10 * time.Second).
				Should(Equal(mpxfer.StateFailed))

			snap := mgr.Snapshot()
			Expect(snap.Tasks[0].Err).To(HaveOccurred())
			Expect(snap.Tasks[0].ProgressPercent).To(BeNumerically("<", 100))
		}, NodeTimeout(30*time.Second))

		It("should fail the task when initiation fails", func(ctx context.Context) {
			initErr := &transaction.InitError{Key: "alice/x", Err: errors.New("bucket gone")}
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("", initErr)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateFailed))
		}, NodeTimeout(10*time.Second))

		It("should discard the failed session entirely on retry", func(ctx context.Context) {
			file := sourcetest.FileFactory(1024)
			allowAuthorize()

			aborted := make(chan string, 1)
			gomock.InOrder(
				mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-old", nil),
				mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-new", nil),
			)
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("", &executor.TransferError{Err: errors.New("broken pipe")}).
				Times(3)
			mockTxn.EXPECT().
				Abort(gomock.Any(), "txn-old").
				DoAndReturn(func(_ context.Context, transactionID string) error {
					aborted <- transactionID
					return nil
				})
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("tag-1", nil)
			mockTxn.EXPECT().
				Finalize(gomock.Any(), "txn-new", []transaction.CompletedPart{
					{Number: 1, IntegrityTag: "tag-1"},
				}).
				Return("bucket/retried", nil)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: file})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(10 * time.Second).
				Should(Equal(mpxfer.StateFailed))

			Expect(mgr.Retry(taskID)).To(Succeed())
			Eventually(aborted).WithTimeout(5 * time.Second).Should(Receive(Equal("txn-old")))
			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(10 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(30*time.Second))

		It("should refuse to retry a task that is not failed", func(ctx context.Context) {
			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Retry(taskID)).To(MatchError(mpxfer.ErrTaskNotRetryable))
		}, NodeTimeout(10*time.Second))
	})

	Describe("cancellation", func() {
		BeforeEach(func() {
			mgr = newManager()
		})

		It("should abort an in-flight transfer and never finalize", func(ctx context.Context) {
			file := sourcetest.FileFactory(1024)
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)

			transferring := make(chan struct{})
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(transferCtx context.Context, _ transaction.PartAuthorization, _ io.Reader, _ int64, _ executor.ProgressFunc) (string, error) {
					close(transferring)
					<-transferCtx.Done()
					return "", executor.ErrAborted
				})

			aborted := make(chan struct{})
			mockTxn.EXPECT().
				Abort(gomock.Any(), "txn-1").
				DoAndReturn(func(context.Context, string) error {
					close(aborted)
					return nil
				})

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: file})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(transferring).WithTimeout(5 * time.Second).Should(BeClosed())
			Expect(mgr.Cancel(taskID)).To(Succeed())

			// the slot is freed synchronously, before the abort settles
			Expect(taskState(mgr, taskID)).To(Equal(mpxfer.StateCancelled))
			Eventually(aborted).WithTimeout(5 * time.Second).Should(BeClosed())
			Consistently(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(200 * time.Millisecond).
				Should(Equal(mpxfer.StateCancelled))
		}, NodeTimeout(30*time.Second))

		It("should cancel a queued task without it ever initiating", func(ctx context.Context) {
			mgr = newManager(mpxfer.WithMaxConcurrentUploads(1))
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)

			release := make(chan struct{})
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(context.Context, transaction.PartAuthorization, io.Reader, int64, executor.ProgressFunc) (string, error) {
					<-release
					return "tag-1", nil
				})
			mockTxn.EXPECT().Finalize(gomock.Any(), "txn-1", gomock.Any()).Return("bucket/key", nil)

			firstID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			queuedID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())

			Expect(mgr.Start(firstID)).To(Succeed())
			Expect(mgr.Start(queuedID)).To(Succeed())
			Expect(mgr.Cancel(queuedID)).To(Succeed())
			Expect(taskState(mgr, queuedID)).To(Equal(mpxfer.StateCancelled))

			close(release)
			Eventually(func() mpxfer.TaskState { return taskState(mgr, firstID) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(30*time.Second))

		It("should treat cancelling a terminal task as a no-op", func(ctx context.Context) {
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("tag-1", nil)
			mockTxn.EXPECT().Finalize(gomock.Any(), "txn-1", gomock.Any()).Return("bucket/key", nil)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())
			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateCompleted))

			Expect(mgr.Cancel(taskID)).To(Succeed())
			Expect(taskState(mgr, taskID)).To(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(10*time.Second))
	})

	Describe("admission control", func() {
		It("should hold tasks beyond the concurrency limit in FIFO order", func(ctx context.Context) {
			mgr = newManager(mpxfer.WithMaxConcurrentUploads(2))
			allowAuthorize()
			mockTxn.EXPECT().
				Initiate(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(context.Context, string, string) (string, error) {
					return fmt.Sprintf("txn-%d", time.Now().UnixNano()), nil
				}).
				Times(3)

			release := make(chan struct{})
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(context.Context, transaction.PartAuthorization, io.Reader, int64, executor.ProgressFunc) (string, error) {
					<-release
					return "tag-1", nil
				}).
				Times(3)
			mockTxn.EXPECT().
				Finalize(gomock.Any(), gomock.Any(), gomock.Any()).
				Return("bucket/key", nil).
				Times(3)

			var taskIDs []string
			for range 3 {
				taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
				Expect(err).NotTo(HaveOccurred())
				taskIDs = append(taskIDs, taskID)
			}
			mgr.StartAll()

			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskIDs[0]) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateTransferring))
			Eventually(func() mpxfer.TaskState { return taskState(mgr, taskIDs[1]) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateTransferring))

			// the third waits for a slot and must not initiate yet
			Consistently(func() mpxfer.TaskState { return taskState(mgr, taskIDs[2]) }).
				WithTimeout(200 * time.Millisecond).
				Should(Equal(mpxfer.StateIdle))

			close(release)
			for _, taskID := range taskIDs {
				Eventually(func() mpxfer.TaskState { return taskState(mgr, taskID) }).
					WithTimeout(10 * time.Second).
					Should(Equal(mpxfer.StateCompleted))
			}
		}, NodeTimeout(30*time.Second))

		It("should refuse to start a task twice", func(ctx context.Context) {
			mgr = newManager(mpxfer.WithMaxConcurrentUploads(1))
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)

			release := make(chan struct{})
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(context.Context, transaction.PartAuthorization, io.Reader, int64, executor.ProgressFunc) (string, error) {
					<-release
					return "tag-1", nil
				})
			mockTxn.EXPECT().Finalize(gomock.Any(), "txn-1", gomock.Any()).Return("bucket/key", nil)

			busyID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			queuedID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())

			Expect(mgr.Start(busyID)).To(Succeed())
			Expect(mgr.Start(busyID)).To(MatchError(mpxfer.ErrTaskNotStartable))

			// a queued task is already requested, starting it again fails
			Expect(mgr.Start(queuedID)).To(Succeed())
			Expect(mgr.Start(queuedID)).To(MatchError(mpxfer.ErrTaskNotStartable))

			Expect(mgr.Cancel(queuedID)).To(Succeed())
			close(release)
			Eventually(func() mpxfer.TaskState { return taskState(mgr, busyID) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateCompleted))
		}, NodeTimeout(30*time.Second))
	})

	Describe("catalog registration", func() {
		It("should register the finished object with the catalog", func(ctx context.Context) {
			mockCatalog := mock_catalog.NewMockCatalog(mockCtrl)
			mgr = newManager(mpxfer.WithCatalog(mockCatalog))

			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("tag-1", nil)
			mockTxn.EXPECT().Finalize(gomock.Any(), "txn-1", gomock.Any()).Return("bucket/object", nil)

			registered := make(chan catalog.Entry, 1)
			mockCatalog.EXPECT().
				RegisterObject(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, entry catalog.Entry) error {
					registered <- entry
					return nil
				})

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024), FolderID: "folder-7"})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			var entry catalog.Entry
			Eventually(registered).WithTimeout(5 * time.Second).Should(Receive(&entry))
			Expect(entry.Owner).To(Equal("alice"))
			Expect(entry.FolderID).To(Equal("folder-7"))
			Expect(entry.ObjectID).To(Equal("bucket/object"))
			Expect(entry.Size).To(Equal(int64(1024)))
		}, NodeTimeout(10*time.Second))
	})

	Describe("visible set maintenance", func() {
		BeforeEach(func() {
			mgr = newManager()
		})

		It("should clear only completed tasks", func(ctx context.Context) {
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("tag-1", nil)
			mockTxn.EXPECT().Finalize(gomock.Any(), "txn-1", gomock.Any()).Return("bucket/key", nil)

			doneID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			idleID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())

			Expect(mgr.Start(doneID)).To(Succeed())
			Eventually(func() mpxfer.TaskState { return taskState(mgr, doneID) }).
				WithTimeout(5 * time.Second).
				Should(Equal(mpxfer.StateCompleted))

			mgr.ClearCompleted()
			snap := mgr.Snapshot()
			Expect(snap.Tasks).To(HaveLen(1))
			Expect(snap.Tasks[0].ID).To(Equal(idleID))
		}, NodeTimeout(10*time.Second))

		It("should dismiss a terminal task and refuse an active one", func(ctx context.Context) {
			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())

			Expect(mgr.Dismiss(taskID)).To(MatchError(mpxfer.ErrTaskNotTerminal))
			Expect(mgr.Cancel(taskID)).To(Succeed())
			Expect(mgr.Dismiss(taskID)).To(Succeed())
			Expect(mgr.Snapshot().Tasks).To(BeEmpty())
			Expect(mgr.Dismiss(taskID)).To(MatchError(mpxfer.ErrTaskNotFound))
		}, NodeTimeout(10*time.Second))
	})

	Describe("Subscribe", func() {
		BeforeEach(func() {
			mgr = newManager()
		})

		It("should deliver state events for one task in lifecycle order", func(ctx context.Context) {
			allowAuthorize()
			mockTxn.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any()).Return("txn-1", nil)
			mockExec.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("tag-1", nil)
			mockTxn.EXPECT().Finalize(gomock.Any(), "txn-1", gomock.Any()).Return("bucket/key", nil)

			var mu sync.Mutex
			var states []mpxfer.TaskState
			unsubscribe := mgr.Subscribe(func(snap mpxfer.TaskSnapshot) {
				mu.Lock()
				defer mu.Unlock()
				if len(states) == 0 || states[len(states)-1] != snap.State {
					states = append(states, snap.State)
				}
			})
			DeferCleanup(unsubscribe)

			taskID, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Start(taskID)).To(Succeed())

			Eventually(func() []mpxfer.TaskState {
				mu.Lock()
				defer mu.Unlock()
				return append([]mpxfer.TaskState(nil), states...)
			}).WithTimeout(5 * time.Second).Should(Equal([]mpxfer.TaskState{
				mpxfer.StateIdle,
				mpxfer.StateInitiating,
				mpxfer.StateTransferring,
				mpxfer.StateFinalizing,
				mpxfer.StateCompleted,
			}))
		}, NodeTimeout(10*time.Second))

		It("should stop delivering events after unsubscribe", func(ctx context.Context) {
			var mu sync.Mutex
			received := 0
			unsubscribe := mgr.Subscribe(func(mpxfer.TaskSnapshot) {
				mu.Lock()
				defer mu.Unlock()
				received++
			})
			unsubscribe()

			_, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).NotTo(HaveOccurred())

			Consistently(func() int {
				mu.Lock()
				defer mu.Unlock()
				return received
			}).WithTimeout(200 * time.Millisecond).Should(BeZero())
		}, NodeTimeout(10*time.Second))
	})

	Describe("Close", func() {
		It("should reject operations after close", func(ctx context.Context) {
			mgr = mpxfer.NewManager(GinkgoLogr, mockTxn, mockExec,
				mpxfer.WithIdentity(mpxfer.StaticIdentity("alice")))
			mgr.Close()

			_, err := mgr.Add(ctx, mpxfer.AddCommand{File: sourcetest.FileFactory(1024)})
			Expect(err).To(MatchError(mpxfer.ErrManagerClosed))
			Expect(mgr.Start("any")).To(MatchError(mpxfer.ErrManagerClosed))
		}, NodeTimeout(10*time.Second))
	})
})
