package usage

import (
	"testing"

	"github.com/hpc-tools/usage-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []domain.UsageRow {
	return []domain.UsageRow{
		{Cluster: "baobab", Login: "alice", Account: "kalousis", Used: 100},
		{Cluster: "yggdrasil", Login: "alice", Account: "kalousis", Used: 50},
		{Cluster: "baobab", Login: "bob", Account: "kalousis", Used: 150},
		{Cluster: "bamboo", Login: "carol", Account: "other", Used: 20},
		{Cluster: "baobab", Login: "", Account: "kalousis", Used: 250},
		{Cluster: "baobab", Login: "alice", Account: "other", Used: 5},
	}
}

func TestAggregateByUser_SortsAndExcludesAccountRows(t *testing.T) {
	// When
	totals := AggregateByUser(sampleRows())

	// Then
	assert.Equal(t, []domain.UserTotal{
		{Login: "alice", Used: 155},
		{Login: "bob", Used: 150},
		{Login: "carol", Used: 20},
	}, totals)

	var sum float64
	for _, total := range totals {
		sum += total.Used
	}
	assert.Equal(t, TeamTotal(UserRows(sampleRows())), sum)
}

func TestAggregateByUser_TiesBrokenByLogin(t *testing.T) {
	rows := []domain.UsageRow{
		{Login: "zoe", Used: 10},
		{Login: "adam", Used: 10},
		{Login: "mia", Used: 10},
	}

	totals := AggregateByUser(rows)

	require.Len(t, totals, 3)
	assert.Equal(t, "adam", totals[0].Login)
	assert.Equal(t, "mia", totals[1].Login)
	assert.Equal(t, "zoe", totals[2].Login)
}

func TestAggregate_OrientationsAreTransposes(t *testing.T) {
	// Given
	rows := sampleRows()

	// When
	byCluster := AggregateByClusterAndUser(rows)
	byUser := AggregateByUserAndCluster(rows)

	// Then
	var clusterSum, userSum float64
	for cluster, logins := range byCluster {
		for login, used := range logins {
			clusterSum += used
			assert.Equal(t, used, byUser[login][cluster])
		}
	}
	for _, clusters := range byUser {
		for _, used := range clusters {
			userSum += used
		}
	}
	assert.Equal(t, clusterSum, userSum)
	assert.Equal(t, TeamTotal(rows), clusterSum)
	assert.Equal(t, 105.0, byCluster["baobab"]["alice"])
	assert.Equal(t, 250.0, byCluster["baobab"][""])
}

func TestAggregate_EmptyRows(t *testing.T) {
	agg := Aggregate(nil)

	assert.Empty(t, agg.ByCluster)
	assert.Empty(t, agg.ByUser)
	assert.Zero(t, agg.Total())
}

func TestUserTotal(t *testing.T) {
	rows := sampleRows()

	assert.Equal(t, 155.0, UserTotal(rows, "alice"))
	assert.Zero(t, UserTotal(rows, "nobody"))
	assert.Zero(t, UserTotal(rows, ""))
	assert.Equal(t, 155.0, Aggregate(rows).UserTotal("alice"))
}

func TestRollupByUser(t *testing.T) {
	rolled := RollupByUser(sampleRows())

	require.Len(t, rolled, 3)
	assert.Equal(t, domain.UsageRow{Login: "alice", Used: 155}, rolled[0])
}
