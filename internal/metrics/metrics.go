package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AutomationEventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_automation_events_dispatched_total",
		Help: "Total number of CRM events handed to the automation runner, labelled by event type.",
	}, []string{"event_type"})

	AutomationRecipesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_automation_recipes_matched_total",
		Help: "Total number of recipe matches, labelled by recipe ID.",
	}, []string{"recipe_id"})

	AutomationRecipeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_automation_recipe_failures_total",
		Help: "Total number of recipe executions aborted by an action failure, labelled by recipe ID.",
	}, []string{"recipe_id"})

	AutomationActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_automation_actions_executed_total",
		Help: "Total number of actions executed, labelled by type and status (success, skipped, error).",
	}, []string{"action_type", "status"})

	AutomationDispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crm_automation_dispatch_duration_ms",
		Help:    "End-to-end automation dispatch latency per event in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	FormSubmissionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_form_submissions_rejected_total",
		Help: "Total number of public form submissions rejected by the rate limiter.",
	})
)
