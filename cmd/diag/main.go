package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/Repin-Daniil/glonass-visualization/internal/camera"
	"github.com/Repin-Daniil/glonass-visualization/internal/control"
	"github.com/Repin-Daniil/glonass-visualization/internal/frame"
	"github.com/Repin-Daniil/glonass-visualization/internal/orbit"
	"github.com/Repin-Daniil/glonass-visualization/internal/scene"
	"github.com/Repin-Daniil/glonass-visualization/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	t := pflag.Float64("t", 0, "timestamp in milliseconds")
	aspect := pflag.Float64("aspect", 16.0/9, "viewport aspect ratio")
	yaw := pflag.Float64("yaw", 0, "camera yaw in radians")
	pitch := pflag.Float64("pitch", 0, "camera pitch in radians")
	zoom := pflag.Float64("zoom", 1, "camera zoom level")
	speed := pflag.Float64("speed", control.DefaultRotationSpeed, "rotation speed")
	asJSON := pflag.Bool("json", false, "print the frame as JSON")
	pflag.Parse()

	e := orbit.GLONASS()
	static, err := scene.NewStatic(e, 200, 50)
	if err != nil {
		fmt.Println("ERROR building geometry:", err)
		os.Exit(1)
	}
	builder := scene.NewBuilder(e, static, nil)

	sched := frame.NewScheduler(builder, nil, frame.Options{
		Backend: "diag",
		Aspect:  *aspect,
		Camera:  camera.NewAt(*yaw, *pitch, *zoom),
	}, logger)
	sched.Apply(control.RotationSpeed(*speed))
	f := sched.Advance(*t)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f); err != nil {
			fmt.Println("ERROR encoding frame:", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Frame %d at t=%.3fs (satellites at %.1fs), earth rotation %.4f rad\n",
		f.Seq, f.Time, f.Time*frame.TimeDilation, f.EarthRotation)
	fmt.Printf("Static: %d earth vertices, %d indices, %d ring points x %d planes\n",
		static.Earth.VertexCount(), len(static.Earth.Indices), static.RingPoints, static.Planes)

	fmt.Printf("\n%d draw requests:\n", len(f.Draws))
	for i, d := range f.Draws {
		fmt.Printf("  %d: %-10s plane=%d %-10s first=%-4d count=%-5d textured=%v size=%.0f\n",
			i, d.Object, d.Plane, d.Primitive, d.First, d.Count, d.Textured, d.PointSize)
	}

	snap := telemetry.NewRecorder(builder).Snapshot(f)
	fmt.Printf("\n%d satellites:\n", len(snap.Satellites))
	for _, s := range snap.Satellites {
		fmt.Printf("  plane %d slot %d: (%8.2f, %8.2f, %8.2f) lat=%6.2f° lon=%7.2f° alt=%.0fkm v=%.2fkm/s\n",
			s.Plane, s.Slot, s.Position[0], s.Position[1], s.Position[2],
			s.LatitudeDeg, s.LongitudeDeg, s.AltitudeKm, s.SpeedKmS)
	}
}
