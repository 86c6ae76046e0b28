// Command fpcam_sandbox runs the real camera controller and mouse engine
// against a simulated player on a flat plane, for tuning without the game.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/bkfirstperson/extension/internal/camera"
	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/internal/mouse"
)

const (
	screenWidth  = 960
	screenHeight = 640
	worldScale   = 0.25 // pixels per unit
	gridStep     = 200
)

// buttonKeys maps game buttons to sandbox keys.
var buttonKeys = map[camera.Button]ebiten.Key{
	camera.ButtonDUp:    ebiten.KeyF,
	camera.ButtonDDown:  ebiten.KeyH,
	camera.ButtonCLeft:  ebiten.KeyJ,
	camera.ButtonCRight: ebiten.KeyL,
	camera.ButtonCUp:    ebiten.KeyI,
	camera.ButtonCDown:  ebiten.KeyK,
}

type game struct {
	world      *world
	engine     *mouse.Engine
	controller *camera.Controller
}

func (g *game) Update() error {
	w := g.world
	for b, k := range buttonKeys {
		w.held[b] = ebiten.IsKeyPressed(k)
		w.pressed[b] = inpututil.IsKeyJustPressed(k)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyU) {
		w.water = 1 - w.water
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		w.mapID++
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5} {
		if inpututil.IsKeyJustPressed(k) {
			w.transformation = i + 1
		}
	}

	w.step(input{
		forward: ebiten.IsKeyPressed(ebiten.KeyW),
		back:    ebiten.IsKeyPressed(ebiten.KeyS),
		left:    ebiten.IsKeyPressed(ebiten.KeyA),
		right:   ebiten.IsKeyPressed(ebiten.KeyD),
		fly:     ebiten.IsKeyPressed(ebiten.KeySpace),
		egg:     ebiten.IsKeyPressed(ebiten.KeyE),
	}, 1/float32(ebiten.TPS()))

	g.controller.BeforeUpdate()
	g.controller.AfterUpdate()
	return nil
}

func toScreen(x, z float32, origin [2]float32) (float32, float32) {
	return screenWidth/2 + (x-origin[0])*worldScale, screenHeight/2 - (z-origin[1])*worldScale
}

func (g *game) Draw(screen *ebiten.Image) {
	w := g.world
	origin := [2]float32{w.pos.X(), w.pos.Z()}

	screen.Fill(color.RGBA{24, 28, 36, 255})
	gridColor := color.RGBA{48, 54, 66, 255}
	halfW := float32(screenWidth/2) / worldScale
	halfH := float32(screenHeight/2) / worldScale
	startX := float32(math.Floor(float64(origin[0]-halfW)/gridStep)) * gridStep
	startZ := float32(math.Floor(float64(origin[1]-halfH)/gridStep)) * gridStep
	for x := startX; x < origin[0]+halfW; x += gridStep {
		sx, _ := toScreen(x, 0, origin)
		vector.StrokeLine(screen, sx, 0, sx, screenHeight, 1, gridColor, false)
	}
	for z := startZ; z < origin[1]+halfH; z += gridStep {
		_, sy := toScreen(0, z, origin)
		vector.StrokeLine(screen, 0, sy, screenWidth, sy, 1, gridColor, false)
	}

	px, py := toScreen(w.pos.X(), w.pos.Z(), origin)
	playerColor := color.RGBA{230, 180, 60, 255}
	if !w.modelVisible {
		playerColor = color.RGBA{120, 100, 50, 255}
	}
	vector.DrawFilledCircle(screen, px, py, 8, playerColor, true)

	// player facing
	fx, fy := direction(w.yaw, 40)
	vector.StrokeLine(screen, px, py, px+fx, py+fy, 2, playerColor, true)

	// view direction; rotation yaw faces back along the player's forward
	// vector, so flip it for drawing
	vx, vy := toScreen(w.viewPos.X(), w.viewPos.Z(), origin)
	lx, ly := direction(w.viewRot.Y()+180, 80)
	viewColor := color.RGBA{90, 200, 240, 255}
	vector.DrawFilledCircle(screen, vx, vy, 4, viewColor, true)
	vector.StrokeLine(screen, vx, vy, vx+lx, vy+ly, 2, viewColor, true)

	st := g.controller.Status()
	paused, menu := g.engine.Paused()
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"first person: %v  head tracking: %v\n"+
			"yaw %.1f  pitch %.1f  roll %.1f  fov %.0f\n"+
			"eye (%.0f, %.0f, %.0f)  form %q  class %s\n"+
			"mouse: %s enabled=%v captured=%v paused=%v menu=%v\n"+
			"map %d  transformation %d  water %d\n\n"+
			"WASD move  F toggle  H head  IJKL look  Space fly  E egg\n"+
			"1-5 form  U water  N map  Esc pause mouse",
		st.Active, st.HeadTracking,
		st.Yaw, st.Pitch, st.Pose.Rotation.Z(), w.fov,
		st.Pose.Eye.X(), st.Pose.Eye.Y(), st.Pose.Eye.Z(), st.Form, st.Class,
		g.engine.BackendName(), g.engine.IsEnabled(), g.engine.IsCaptured(), paused, menu,
		w.mapID, w.transformation, w.water,
	))
}

// direction is a screen-space offset of length n along a yaw angle.
func direction(yaw float32, n float32) (float32, float32) {
	rad := float64(yaw) * math.Pi / 180
	return float32(math.Sin(rad)) * n, -float32(math.Cos(rad)) * n
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	configDir := flag.String("config", ".", "directory holding "+config.FileName)
	formsFile := flag.String("forms", "", "YAML form table (built-in when empty)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := config.Load(*configDir); err != nil {
		log.Warn("Using default settings", "error", err)
	}
	table, err := camera.LoadTable(*formsFile)
	if err != nil {
		log.Error("Invalid form table", "error", err)
		os.Exit(1)
	}

	backend, err := mouse.OpenPlatform(log)
	if err != nil {
		log.Warn("Mouse capture unavailable", "error", err)
		backend = nil
	}
	engine := mouse.New(backend, mouse.WithLogger(log))
	defer engine.Close()

	w := newWorld(table)
	g := &game{
		world:      w,
		engine:     engine,
		controller: camera.New(w, engine, table, config.Current, camera.WithLogger(log)),
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("fpcam sandbox")
	if err := ebiten.RunGame(g); err != nil {
		log.Error("Sandbox stopped", "error", err)
	}
}
