package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PowerCollector bundles Prometheus metrics for the power simulation
// and provides a ready-to-serve /metrics handler.
type PowerCollector struct {
	gatherer prometheus.Gatherer

	TickDurations   prometheus.Histogram
	NetworkRebuilds prometheus.Counter

	Networks        prometheus.Gauge
	Poles           prometheus.Gauge
	Generators      prometheus.Gauge
	SolarPanels     prometheus.Gauge
	Consumers       prometheus.Gauge
	Accumulators    prometheus.Gauge
	Production      prometheus.Gauge
	Consumption     prometheus.Gauge
	MinSatisfaction prometheus.Gauge
}

// NewPowerCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry
// when nil.
func NewPowerCollector(reg prometheus.Registerer) (*PowerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Wall-clock time spent executing one simulation tick.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "sim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	rebuilds, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_network_rebuilds_total",
		Help: "Total number of power network partition rebuilds.",
	}), "sim_network_rebuilds_total")
	if err != nil {
		return nil, err
	}

	networks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_power_networks",
		Help: "Current number of power networks in the partition.",
	}), "sim_power_networks")
	if err != nil {
		return nil, err
	}
	poles, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_poles",
		Help: "Current number of placed poles.",
	}), "sim_poles")
	if err != nil {
		return nil, err
	}
	generators, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_generators",
		Help: "Current number of placed generators.",
	}), "sim_generators")
	if err != nil {
		return nil, err
	}
	solarPanels, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_solar_panels",
		Help: "Current number of placed solar panels.",
	}), "sim_solar_panels")
	if err != nil {
		return nil, err
	}
	consumers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_consumers",
		Help: "Current number of placed consumers.",
	}), "sim_consumers")
	if err != nil {
		return nil, err
	}
	accumulators, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_accumulators",
		Help: "Current number of placed accumulators.",
	}), "sim_accumulators")
	if err != nil {
		return nil, err
	}
	production, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_power_production_watts",
		Help: "Total production across all networks on the latest tick.",
	}), "sim_power_production_watts")
	if err != nil {
		return nil, err
	}
	consumption, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_power_consumption_watts",
		Help: "Total consumption across all networks on the latest tick.",
	}), "sim_power_consumption_watts")
	if err != nil {
		return nil, err
	}
	minSatisfaction, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_min_satisfaction",
		Help: "Minimum satisfaction ratio across networks with demand on the latest tick.",
	}), "sim_min_satisfaction")
	if err != nil {
		return nil, err
	}

	return &PowerCollector{
		gatherer:        gatherer,
		TickDurations:   ticks,
		NetworkRebuilds: rebuilds,
		Networks:        networks,
		Poles:           poles,
		Generators:      generators,
		SolarPanels:     solarPanels,
		Consumers:       consumers,
		Accumulators:    accumulators,
		Production:      production,
		Consumption:     consumption,
		MinSatisfaction: minSatisfaction,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PowerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTickDuration records the wall-clock cost of one tick.
func (c *PowerCollector) ObserveTickDuration(d time.Duration) {
	if c == nil || c.TickDurations == nil {
		return
	}
	c.TickDurations.Observe(d.Seconds())
}

// IncNetworkRebuilds counts one partition rebuild.
func (c *PowerCollector) IncNetworkRebuilds() {
	if c == nil || c.NetworkRebuilds == nil {
		return
	}
	c.NetworkRebuilds.Inc()
}

// SetNetworkCount records the size of the current partition.
func (c *PowerCollector) SetNetworkCount(n int) {
	if c == nil || c.Networks == nil {
		return
	}
	c.Networks.Set(float64(n))
}

// SetPowerTotals records partition-wide production/consumption and the
// minimum satisfaction across networks with demand.
func (c *PowerCollector) SetPowerTotals(production, consumption, minSatisfaction float64) {
	if c == nil {
		return
	}
	if c.Production != nil {
		c.Production.Set(production)
	}
	if c.Consumption != nil {
		c.Consumption.Set(consumption)
	}
	if c.MinSatisfaction != nil {
		c.MinSatisfaction.Set(minSatisfaction)
	}
}

// SetFactoryCounts satisfies the FactoryMetricsRecorder interface so the
// FactoryState can drive gauge values directly from its mutators.
func (c *PowerCollector) SetFactoryCounts(poles, generators, solarPanels, consumers, accumulators int) {
	if c == nil {
		return
	}
	if c.Poles != nil {
		c.Poles.Set(float64(poles))
	}
	if c.Generators != nil {
		c.Generators.Set(float64(generators))
	}
	if c.SolarPanels != nil {
		c.SolarPanels.Set(float64(solarPanels))
	}
	if c.Consumers != nil {
		c.Consumers.Set(float64(consumers))
	}
	if c.Accumulators != nil {
		c.Accumulators.Set(float64(accumulators))
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
