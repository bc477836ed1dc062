// Command cabletelemetry extracts vibration and motion features from stored
// cable-car telemetry and replays the raw dataset as live measurements.
package main

func main() {
	Execute()
}
