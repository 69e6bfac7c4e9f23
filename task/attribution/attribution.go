package attribution

import (
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"marketpulse/metrics"
	"marketpulse/model/model"
	"marketpulse/model/store"
	U "marketpulse/util"
)

// JobName keys the recomputation watermark row.
const JobName = "attribution_recompute"

const defaultBatchSize = 5000

// dataDrivenHook supplies raw weights for data_driven models. Nil until a
// trained model is registered; scoring falls back to linear without it.
var dataDrivenHook model.DataDrivenHook

func SetDataDrivenHook(hook model.DataDrivenHook) {
	dataDrivenHook = hook
}

type journeyScore struct {
	journey     model.Journey
	resultCount int
	err         error
}

// RunAttribution is one batch of the recomputation job. It sweeps stale
// active journeys into abandonment, scores every journey changed since the
// watermark across all active models, rebuilds the affected insight periods
// and advances the watermark only when the whole batch succeeded. Re-running
// after a partial failure rescans from the old watermark; every write is an
// upsert, so replays converge (at-least-once, not exactly-once).
func RunAttribution(configs map[string]interface{}) (map[string]interface{}, bool) {
	startTime := time.Now()
	status := map[string]interface{}{}

	numRoutines := getIntConfig(configs, "num_routines", 4)
	batchSize := getIntConfig(configs, "batch_size", defaultBatchSize)
	inactivityWindowDays := getIntConfig(configs, "inactivity_window_days", 30)

	watermark, errCode := store.GetStore().GetJobWatermark(JobName)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		status["error"] = "failed to get watermark"
		metrics.Increment(metrics.IncrAttributionBatchFailure)
		return status, false
	}

	inactiveBefore := U.TimeNowUnix() - int64(inactivityWindowDays)*model.SecsInADay
	abandonedCount, errCode := store.GetStore().AbandonStaleJourneys(inactiveBefore)
	if errCode != http.StatusAccepted {
		status["error"] = "failed to abandon stale journeys"
		metrics.Increment(metrics.IncrAttributionBatchFailure)
		return status, false
	}
	status["auto_abandoned"] = abandonedCount

	journeys, errCode := store.GetStore().GetJourneysChangedSince(watermark, batchSize)
	if errCode != http.StatusFound {
		status["error"] = "failed to get changed journeys"
		metrics.Increment(metrics.IncrAttributionBatchFailure)
		return status, false
	}
	status["journeys_changed"] = len(journeys)
	if len(journeys) == 0 {
		return status, true
	}

	activeModels, errCode := store.GetStore().GetActiveAttributionModels()
	if errCode != http.StatusFound {
		status["error"] = "failed to get active models"
		metrics.Increment(metrics.IncrAttributionBatchFailure)
		return status, false
	}

	scores := scoreJourneys(journeys, activeModels, numRoutines)

	var failures, processed, skipped int
	var maxLastEventAt int64
	affectedPeriods := map[string]map[int64]bool{}
	for _, score := range scores {
		if score.err != nil {
			failures++
			metrics.Increment(metrics.IncrAttributionJourneysFailed)
			log.WithField("journey_id", score.journey.ID).WithError(score.err).
				Error("Failed to score journey.")
			continue
		}
		if score.journey.LastEventAt > maxLastEventAt {
			maxLastEventAt = score.journey.LastEventAt
		}

		switch score.journey.Status {
		case model.JourneyStatusConverted:
			processed++
			metrics.Increment(metrics.IncrAttributionJourneysProcessed)
			terminalTimestamp := score.journey.EndTimestamp
			if score.journey.ConversionTimestamp != nil {
				terminalTimestamp = *score.journey.ConversionTimestamp
			}
			collectAffectedPeriods(affectedPeriods, terminalTimestamp)
		case model.JourneyStatusAbandoned:
			metrics.Increment(metrics.IncrAttributionJourneysAbandoned)
			collectAffectedPeriods(affectedPeriods, score.journey.EndTimestamp)
		default:
			// Still active; nothing to score yet.
			skipped++
		}
	}
	status["journeys_scored"] = processed
	status["journeys_active_skipped"] = skipped
	status["journeys_failed"] = failures

	rebuilt, err := rebuildAffectedInsights(activeModels, affectedPeriods)
	status["insight_periods_rebuilt"] = rebuilt
	if err != nil {
		status["error"] = err.Error()
		metrics.Increment(metrics.IncrAttributionBatchFailure)
		return status, false
	}

	if failures > 0 {
		// Keep the old watermark so the failed journeys are rescanned.
		metrics.Increment(metrics.IncrAttributionBatchFailure)
		return status, false
	}

	if maxLastEventAt > watermark {
		if errCode := store.GetStore().SetJobWatermark(JobName, maxLastEventAt); errCode != http.StatusAccepted {
			status["error"] = "failed to advance watermark"
			metrics.Increment(metrics.IncrAttributionBatchFailure)
			return status, false
		}
		status["watermark"] = maxLastEventAt
	}

	metrics.RecordLatency(metrics.LatencyAttributionBatch,
		float64(time.Since(startTime).Milliseconds()))
	return status, true
}

// scoreJourneys fans journeys out over numRoutines workers. Journeys are
// independent of each other; each worker only writes its own journey's
// rows, so storage is the only contention point.
func scoreJourneys(journeys []model.Journey, activeModels []model.AttributionModel,
	numRoutines int) []journeyScore {

	if numRoutines < 1 {
		numRoutines = 1
	}

	jobs := make(chan model.Journey, len(journeys))
	results := make(chan journeyScore, len(journeys))

	var wg sync.WaitGroup
	for worker := 0; worker < numRoutines; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for journey := range jobs {
				results <- scoreJourney(journey, activeModels)
			}
		}()
	}
	for _, journey := range journeys {
		jobs <- journey
	}
	close(jobs)
	wg.Wait()
	close(results)

	scores := make([]journeyScore, 0, len(journeys))
	for score := range results {
		scores = append(scores, score)
	}
	return scores
}

func scoreJourney(journey model.Journey, activeModels []model.AttributionModel) journeyScore {
	score := journeyScore{journey: journey}
	if journey.Status != model.JourneyStatusConverted {
		return score
	}

	touchpoints, errCode := store.GetStore().GetTouchpointsForJourney(journey.ID)
	if errCode != http.StatusFound {
		score.err = errors.Errorf("failed to get touchpoints: status %d", errCode)
		return score
	}
	if len(touchpoints) == 0 {
		// Conversion recorded on a journey that never saw a touchpoint.
		// Nothing to credit; not a failure.
		log.WithField("journey_id", journey.ID).Warn("Converted journey has no touchpoints.")
		return score
	}

	assembled, err := model.AssembleJourney(&journey, touchpoints, model.TiebreakByIngestSeq)
	if err != nil {
		score.err = errors.Wrap(err, "failed to assemble journey")
		return score
	}

	for i := range activeModels {
		attributionModel := &activeModels[i]
		credits, err := model.ApplyAttributionModel(assembled, attributionModel, dataDrivenHook)
		if err != nil {
			score.err = errors.Wrapf(err, "failed to apply model %s", attributionModel.ID)
			return score
		}

		count, errCode := store.GetStore().WriteAttributionResults(assembled, attributionModel, credits)
		if errCode != http.StatusCreated {
			score.err = errors.Errorf("failed to write results for model %s: status %d",
				attributionModel.ID, errCode)
			return score
		}
		score.resultCount += count
	}
	return score
}

func collectAffectedPeriods(affected map[string]map[int64]bool, terminalTimestamp int64) {
	for _, granularity := range []string{U.GranularityDays, U.GranularityWeek,
		U.GranularityMonth, U.GranularityQuarter} {

		periodStart, err := U.GetPeriodStartTimestampIn(terminalTimestamp,
			granularity, U.TimeZoneStringUTC)
		if err != nil {
			continue
		}
		if affected[granularity] == nil {
			affected[granularity] = map[int64]bool{}
		}
		affected[granularity][periodStart] = true
	}
}

func rebuildAffectedInsights(activeModels []model.AttributionModel,
	affected map[string]map[int64]bool) (int, error) {

	rebuilt := 0
	for i := range activeModels {
		for granularity, periods := range affected {
			for periodStart := range periods {
				_, errCode := store.GetStore().RebuildInsightsForPeriod(&activeModels[i],
					granularity, periodStart, model.TiebreakByIngestSeq)
				if errCode != http.StatusCreated {
					return rebuilt, errors.Errorf(
						"failed to rebuild insights for model %s %s %d: status %d",
						activeModels[i].ID, granularity, periodStart, errCode)
				}
				rebuilt++
			}
		}
	}
	return rebuilt, nil
}

func getIntConfig(configs map[string]interface{}, key string, defaultValue int) int {
	value, exists := configs[key]
	if !exists {
		return defaultValue
	}
	valueAsInt, ok := value.(int)
	if !ok || valueAsInt <= 0 {
		return defaultValue
	}
	return valueAsInt
}
