package core

import (
	"reflect"
	"testing"
)

func TestMetricsQueryDefaults(t *testing.T) {
	q := NewMetricsQueryBuilder().Build()
	if q.Granularity != PeriodMonth {
		t.Fatalf("expected month granularity, got %q", q.Granularity)
	}
	if !reflect.DeepEqual(q.Metrics, []string{MetricExpenses, MetricIncome}) {
		t.Fatalf("unexpected default metrics: %v", q.Metrics)
	}
	if len(q.MemberIDs) != 0 {
		t.Fatalf("expected all-members default, got %v", q.MemberIDs)
	}
}

func TestMetricsQueryExplicitSelection(t *testing.T) {
	q := NewMetricsQueryBuilder().
		SetMemberIDs([]string{"m1", "m2"}).
		SetGranularity(PeriodWeek).
		SetMetrics([]string{MetricTasks}).
		SetFrom("2025-01-01").
		Build()
	if !reflect.DeepEqual(q.MemberIDs, []string{"m1", "m2"}) {
		t.Fatalf("unexpected members: %v", q.MemberIDs)
	}
	if q.Granularity != PeriodWeek || !reflect.DeepEqual(q.Metrics, []string{MetricTasks}) {
		t.Fatalf("explicit selection overwritten: %+v", q)
	}
	if q.From != "2025-01-01T00:00:00Z" {
		t.Fatalf("expected normalized from, got %q", q.From)
	}
}

func TestMetricsQueryEmptySlicesIgnored(t *testing.T) {
	q := NewMetricsQueryBuilder().
		SetMemberIDs(nil).
		SetMetrics([]string{}).
		Build()
	if len(q.MemberIDs) != 0 {
		t.Fatalf("unexpected members: %v", q.MemberIDs)
	}
	if len(q.Metrics) != 2 {
		t.Fatalf("expected default metrics, got %v", q.Metrics)
	}
}
