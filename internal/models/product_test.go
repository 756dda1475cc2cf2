package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datePtr(t time.Time) *time.Time {
	return &t
}

func TestParseCurrency(t *testing.T) {
	cur, ok := ParseCurrency("eur")
	assert.True(t, ok)
	assert.Equal(t, CurrencyEUR, cur)

	cur, ok = ParseCurrency("USD")
	assert.True(t, ok)
	assert.Equal(t, CurrencyUSD, cur)

	_, ok = ParseCurrency("GBP")
	assert.False(t, ok)

	assert.False(t, ValidCurrency(""))
}

func TestCurrentLifecycleStatesWithoutAnnouncement(t *testing.T) {
	p := &Product{}
	assert.Nil(t, p.CurrentLifecycleStates())
}

func TestCurrentLifecycleStatesAnnouncedOnly(t *testing.T) {
	p := &Product{
		EolExtAnnouncementDate: datePtr(time.Now().AddDate(0, -1, 0)),
		EndOfSaleDate:          datePtr(time.Now().AddDate(1, 0, 0)),
	}
	assert.Equal(t, []string{LifecycleStateEosAnnounced}, p.CurrentLifecycleStates())
}

func TestCurrentLifecycleStatesAfterEndOfSale(t *testing.T) {
	p := &Product{
		EolExtAnnouncementDate: datePtr(time.Now().AddDate(-2, 0, 0)),
		EndOfSaleDate:          datePtr(time.Now().AddDate(-1, 0, 0)),
		EndOfSwMaintenanceDate: datePtr(time.Now().AddDate(0, -1, 0)),
	}

	states := p.CurrentLifecycleStates()
	assert.Contains(t, states, LifecycleStateEndOfSale)
	assert.Contains(t, states, LifecycleStateEndOfSwMaintenance)
	// missing milestone dates count as still in the future
	assert.NotContains(t, states, LifecycleStateEndOfSupport)
	assert.NotContains(t, states, LifecycleStateEndOfServiceContractRen)
}

func TestCurrentLifecycleStatesAfterEndOfSupport(t *testing.T) {
	p := &Product{
		EolExtAnnouncementDate: datePtr(time.Now().AddDate(-5, 0, 0)),
		EndOfSaleDate:          datePtr(time.Now().AddDate(-4, 0, 0)),
		EndOfSupportDate:       datePtr(time.Now().AddDate(-1, 0, 0)),
	}
	assert.Equal(t, []string{LifecycleStateEndOfSupport}, p.CurrentLifecycleStates())
}

func TestVendorIsUnassigned(t *testing.T) {
	assert.True(t, (&Vendor{ID: UnassignedVendorID}).IsUnassigned())
	assert.False(t, (&Vendor{ID: 7}).IsUnassigned())
}
