// Package weather fetches current conditions and the daily forecast from the
// Open-Meteo API and caches both in the local key-value store. Current
// conditions stay fresh for 30 minutes and the forecast for 3 hours; when the
// network is down a stale cached answer is served instead of an error.
package weather
