package workers

import (
	"fmt"
	"log"
	"sync"

	"github.com/talkdigital/courtshoesbackend/config"
	"github.com/talkdigital/courtshoesbackend/importer"
	"github.com/talkdigital/courtshoesbackend/realtime"
	"github.com/talkdigital/courtshoesbackend/repository"
	"github.com/talkdigital/courtshoesbackend/services"
)

// ImportJob carries one marathon's parsed detection export through the
// persistence and recompute pipeline.
type ImportJob struct {
	MarathonID uint
	Records    []importer.ImageRecord
}

// ImportProcessor runs marathon imports on a background worker pool. At most
// one job per marathon is pending at any time; re-submitting an in-flight
// marathon is rejected instead of queued twice.
type ImportProcessor struct {
	JobQueue     chan ImportJob
	Config       config.Config
	MarathonRepo repository.MarathonRepositoryInterface
	DetRepo      repository.DetectionRepositoryInterface
	Metrics      *services.MetricsService
	Hub          *realtime.Hub
	Wg           sync.WaitGroup
	StopChan     chan struct{}
	Pending      map[uint]bool
	Mutex        sync.Mutex

	// InvalidateReports, when set, is called after a successful import so
	// cached report responses built from the old rows are dropped.
	InvalidateReports func(marathonID uint)
}

func NewImportProcessor(
	cfg config.Config,
	marathonRepo repository.MarathonRepositoryInterface,
	detRepo repository.DetectionRepositoryInterface,
	metrics *services.MetricsService,
	hub *realtime.Hub,
) *ImportProcessor {
	numWorkers := cfg.NumImportWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	queueSize := cfg.ImportQueueSize
	if queueSize <= 0 {
		queueSize = 10
	}
	proc := &ImportProcessor{
		JobQueue:     make(chan ImportJob, queueSize),
		Config:       cfg,
		MarathonRepo: marathonRepo,
		DetRepo:      detRepo,
		Metrics:      metrics,
		Hub:          hub,
		StopChan:     make(chan struct{}),
		Pending:      make(map[uint]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d import worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (ip *ImportProcessor) worker(id int) {
	defer ip.Wg.Done()

	log.Printf("Import worker %d started", id)
	for {
		select {
		case job, ok := <-ip.JobQueue:
			if !ok {
				log.Printf("Import worker %d stopping: Job queue closed", id)
				return
			}

			log.Printf("Worker %d: Received import job for marathon %d (%d image records)", id, job.MarathonID, len(job.Records))
			ip.processImportJob(id, job)

			ip.Mutex.Lock()
			delete(ip.Pending, job.MarathonID)
			ip.Mutex.Unlock()

		case <-ip.StopChan:
			log.Printf("Import worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (ip *ImportProcessor) processImportJob(id int, job ImportJob) {
	if err := ip.MarathonRepo.MarkImportProcessing(job.MarathonID); err != nil {
		log.Printf("Worker %d: ERROR marking marathon %d processing: %v. Skipping job.", id, job.MarathonID, err)
		return
	}
	ip.Hub.Broadcast(realtime.NewEvent(realtime.EventImportStatus, job.MarathonID, "processing"))

	taskErr := ip.runImport(id, job)
	if dbErr := ip.MarathonRepo.SetImportResult(job.MarathonID, taskErr); dbErr != nil {
		log.Printf("Worker %d: ERROR updating import result for marathon %d: %v", id, job.MarathonID, dbErr)
	}

	if taskErr != nil {
		event := realtime.NewEvent(realtime.EventImportStatus, job.MarathonID, "error")
		event.Error = taskErr.Error()
		ip.Hub.Broadcast(event)
		return
	}
	if ip.InvalidateReports != nil {
		ip.InvalidateReports(job.MarathonID)
	}
	ip.Hub.Broadcast(realtime.NewEvent(realtime.EventImportStatus, job.MarathonID, "done"))
	ip.Hub.Broadcast(realtime.NewEvent(realtime.EventMetricsUpdated, job.MarathonID, "done"))
}

// runImport persists the parsed records and rebuilds the marathon's metrics
// cache row. The cache write is best-effort: readers fall back to raw rows
// when the row is missing, so a failed recompute does not fail the import.
func (ip *ImportProcessor) runImport(id int, job ImportJob) error {
	inserted, err := ip.DetRepo.InsertParsedRecords(job.MarathonID, job.Records, ip.Config.ImportBatchSize)
	if err != nil {
		return fmt.Errorf("failed to persist detection records: %w", err)
	}
	log.Printf("Worker %d: Inserted %d images for marathon %d", id, inserted, job.MarathonID)

	if _, err := ip.Metrics.Recompute(job.MarathonID); err != nil {
		log.Printf("Worker %d: ERROR recomputing metrics cache for marathon %d: %v", id, job.MarathonID, err)
	}
	return nil
}

// QueueJob queues an import if the marathon has no pending job
func (ip *ImportProcessor) QueueJob(job ImportJob) bool {
	ip.Mutex.Lock()
	if ip.Pending[job.MarathonID] {
		ip.Mutex.Unlock()
		return false
	}

	ip.Pending[job.MarathonID] = true
	ip.Mutex.Unlock()

	select {
	case ip.JobQueue <- job:
		log.Printf("Queued import for marathon %d", job.MarathonID)
		return true
	default:
		log.Printf("WARNING: Import job queue full. Failed to queue marathon %d", job.MarathonID)
		ip.Mutex.Lock()
		delete(ip.Pending, job.MarathonID)
		ip.Mutex.Unlock()
		return false
	}
}

func (ip *ImportProcessor) Stop() {
	log.Println("Stopping import workers...")
	close(ip.StopChan)
	ip.Wg.Wait()
	log.Println("All import workers stopped")
}
