package stratum

import "github.com/sirupsen/logrus"

// ExtranonceSnapshot is the (extranonce1, extranonce2_size) pair
// captured at the moment a notification was accepted into the job
// table. Submissions use the snapshot, not the live state, so a late
// mining.set_extranonce can't corrupt an in-flight job's coinbase.
type ExtranonceSnapshot struct {
	Extranonce1     string
	Extranonce2Size int
}

// ExtranonceState is the live extranonce the worker is currently
// counting against.
type ExtranonceState struct {
	Extranonce1     string
	Extranonce2Size int
	Extranonce2     uint64
}

// DifficultyState holds the pool-assigned share difficulty.
type DifficultyState struct {
	Difficulty float64
}

// State is all client-side protocol state for one connection, mutated
// only by the Apply* methods below in response to server notifications.
// It is not goroutine-safe: the I/O goroutine owns one instance
// exclusively, and the façade keeps a separate mutex-guarded mirror.
type State struct {
	Extranonce ExtranonceState
	Difficulty DifficultyState
	Current    JobNotification
	hasCurrent bool
	jobTable   map[string]ExtranonceSnapshot

	log *logrus.Entry
}

// NewState returns protocol state seeded at the spec defaults:
// difficulty 1.0, extranonce2 0, no current job.
func NewState(log *logrus.Entry) *State {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &State{
		Difficulty: DifficultyState{Difficulty: 1.0},
		jobTable:   make(map[string]ExtranonceSnapshot),
		log:        log.WithField("component", "stratum"),
	}
}

// ApplyNotify applies a parsed mining.notify. If clean_jobs is true the
// job table is cleared before the new job is inserted, so the table
// contains exactly the one subsequently inserted job. extranonce2 resets
// to 0 whenever the job_id changes.
func (s *State) ApplyNotify(n JobNotification) {
	if n.CleanJobs {
		s.jobTable = make(map[string]ExtranonceSnapshot)
	}

	if !s.hasCurrent || s.Current.JobID != n.JobID {
		s.Extranonce.Extranonce2 = 0
	}

	s.jobTable[n.JobID] = ExtranonceSnapshot{
		Extranonce1:     s.Extranonce.Extranonce1,
		Extranonce2Size: s.Extranonce.Extranonce2Size,
	}
	s.Current = n
	s.hasCurrent = true

	s.log.WithFields(logrus.Fields{
		"job_id":     n.JobID,
		"clean_jobs": n.CleanJobs,
	}).Debug("applied mining.notify")
}

// ApplySetDifficulty replaces the share difficulty.
func (s *State) ApplySetDifficulty(d float64) {
	s.Difficulty.Difficulty = d
	s.log.WithField("difficulty", d).Debug("applied mining.set_difficulty")
}

// ApplySetExtranonce replaces extranonce1/extranonce2_size and resets
// extranonce2 to 0, per spec lifecycle rules.
func (s *State) ApplySetExtranonce(e SetExtranonce) {
	s.Extranonce.Extranonce1 = e.Extranonce1
	s.Extranonce.Extranonce2Size = e.Extranonce2Size
	s.Extranonce.Extranonce2 = 0
	s.log.WithFields(logrus.Fields{
		"extranonce1":      e.Extranonce1,
		"extranonce2_size": e.Extranonce2Size,
	}).Debug("applied mining.set_extranonce")
}

// ApplySubscribeResult seeds the extranonce state from a successful
// mining.subscribe response.
func (s *State) ApplySubscribeResult(r SubscribeResult) {
	s.Extranonce.Extranonce1 = r.Extranonce1
	s.Extranonce.Extranonce2Size = r.Extranonce2Size
	s.Extranonce.Extranonce2 = 0
}

// HasCurrentJob reports whether a mining.notify has ever been applied.
func (s *State) HasCurrentJob() bool {
	return s.hasCurrent
}

// NextExtranonce2 returns the current extranonce2 counter and
// increments it, for callers that want a fresh value per built job. It
// does not mutate the job table.
func (s *State) NextExtranonce2() uint64 {
	v := s.Extranonce.Extranonce2
	s.Extranonce.Extranonce2++
	return v
}

// SnapshotFor returns the (extranonce1, extranonce2_size) captured when
// jobID was accepted, so a submission can use the value in effect at
// job-build time even if set_extranonce landed afterward.
func (s *State) SnapshotFor(jobID string) (ExtranonceSnapshot, bool) {
	snap, ok := s.jobTable[jobID]
	return snap, ok
}

// JobTableSize reports how many job IDs are currently tracked; exposed
// for tests asserting the clean_jobs eviction invariant.
func (s *State) JobTableSize() int {
	return len(s.jobTable)
}
