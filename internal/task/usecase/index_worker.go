package usecase

import (
	"context"
	"sync"
	"time"

	"miinplanner-backend/internal/task/domain"

	"go.uber.org/zap"
)

type indexOp int

const (
	opUpsert indexOp = iota
	opDelete
)

// IndexJob is a single pending change to the semantic index
type IndexJob struct {
	op     indexOp
	task   domain.Task
	taskID string
}

// IndexWorkerService applies index changes in the background so task
// writes never wait on the embedding API.
type IndexWorkerService struct {
	index       SemanticIndex
	log         *zap.Logger
	jobQueue    chan IndexJob
	workerWg    sync.WaitGroup
	workerCount int
	timeout     time.Duration
	started     bool
	stopped     bool
	mu          sync.Mutex
}

// NewIndexWorkerService creates a new index worker service
func NewIndexWorkerService(index SemanticIndex, workerCount int, log *zap.Logger) *IndexWorkerService {
	if workerCount <= 0 {
		workerCount = 2
	}
	return &IndexWorkerService{
		index:       index,
		log:         log.Named("index_worker"),
		jobQueue:    make(chan IndexJob, 500),
		workerCount: workerCount,
		timeout:     15 * time.Second,
	}
}

// Start starts the index workers
func (s *IndexWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	s.log.Info("started", zap.Int("workers", s.workerCount))
}

// Stop drains the queue and waits for workers to exit
func (s *IndexWorkerService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.jobQueue)
	s.mu.Unlock()

	s.workerWg.Wait()
	s.log.Info("all workers stopped")
}

func (s *IndexWorkerService) worker(id int) {
	defer s.workerWg.Done()
	for job := range s.jobQueue {
		s.processJob(job)
	}
	s.log.Debug("worker stopped", zap.Int("worker", id))
}

func (s *IndexWorkerService) processJob(job IndexJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	switch job.op {
	case opUpsert:
		if err := s.index.UpsertTask(ctx, job.task); err != nil {
			s.log.Warn("upsert failed", zap.String("task", job.task.ID), zap.Error(err))
		}
	case opDelete:
		if err := s.index.DeleteTask(ctx, job.taskID); err != nil {
			s.log.Warn("delete failed", zap.String("task", job.taskID), zap.Error(err))
		}
	}
}

// QueueJob adds a job to the queue without blocking. It reports false when
// the queue is full or the service has stopped.
func (s *IndexWorkerService) QueueJob(job IndexJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	select {
	case s.jobQueue <- job:
		return true
	default:
		s.log.Warn("queue full, dropping index job")
		return false
	}
}

// Index implements Indexer
func (s *IndexWorkerService) Index(task domain.Task) {
	s.QueueJob(IndexJob{op: opUpsert, task: task.Clone()})
}

// Remove implements Indexer
func (s *IndexWorkerService) Remove(taskID string) {
	s.QueueJob(IndexJob{op: opDelete, taskID: taskID})
}

// Search implements Indexer. Queries go straight to the index.
func (s *IndexWorkerService) Search(ctx context.Context, userID, query string, limit int) ([]string, error) {
	return s.index.SearchTasks(ctx, userID, query, limit)
}
