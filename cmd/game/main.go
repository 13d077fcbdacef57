package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/younwookim/motioncore/internal/adapter/input"
	"github.com/younwookim/motioncore/internal/application/core"
	"github.com/younwookim/motioncore/internal/application/system"
	"github.com/younwookim/motioncore/internal/ecs"
	"github.com/younwookim/motioncore/internal/event"
	"github.com/younwookim/motioncore/internal/infrastructure/config"
)

// Colors for debug rendering
var (
	colorBG      = color.RGBA{26, 26, 46, 255}
	colorWall    = color.RGBA{80, 80, 100, 255}
	colorPlayer  = color.RGBA{100, 200, 100, 255}
	colorBlocked = color.RGBA{200, 80, 80, 255}
)

const (
	tileSize = 16
	scale    = 3
)

var stageRows = []string{
	"####################",
	"#..................#",
	"#..................#",
	"#......####........#",
	"#..................#",
	"#####......#########",
	"#..................#",
	"####################",
}

// Game implements ebiten.Game and drives the coordination core from
// keyboard input. Purely a debug view; all movement logic lives in the
// core.
type Game struct {
	core     *core.Core
	keyboard *input.Keyboard
	player   ecs.EntityID
	stage    *system.TileStage
	blocked  bool
	landed   int
}

func NewGame(cfg *config.CoreConfig) (*Game, error) {
	stage := system.NewTileStage(tileSize, stageRows)
	world := ecs.NewWorld()
	bus := event.NewBus()
	c := core.New(cfg, world, bus, system.NewTileDetector(stage))

	player, err := c.Spawn(mgl64.Vec2{48, 40}, 12, 20, false)
	if err != nil {
		return nil, err
	}

	g := &Game{
		core:     c,
		keyboard: input.NewKeyboard(player, input.DefaultTuning()),
		player:   player,
		stage:    stage,
	}
	bus.Subscribe(event.EventEntityLanded, func(any) { g.landed++ })
	bus.Subscribe(event.EventMotionBlocked, func(any) { g.blocked = true })
	return g, nil
}

// Update advances one frame: tick the core, then submit this frame's
// intents (the loop order the core expects).
func (g *Game) Update() error {
	g.blocked = false
	g.core.Tick()
	for _, req := range g.keyboard.Requests(g.keyboard.Sample(), g.core.Now()) {
		g.core.Submit(req)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colorBG)

	for y, row := range g.stage.Solid {
		for x, solid := range row {
			if solid {
				ebitenutil.DrawRect(screen,
					float64(x*tileSize), float64(y*tileSize),
					tileSize, tileSize, colorWall)
			}
		}
	}

	q, err := g.core.QueryMotion(g.player)
	if err != nil {
		return
	}
	col := colorPlayer
	if g.blocked {
		col = colorBlocked
	}
	ebitenutil.DrawRect(screen, q.Position[0]-6, q.Position[1]-10, 12, 20, col)

	st := g.core.Statistics()
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"pos=(%.0f,%.0f) vel=(%.0f,%.0f)\ngrounded=%v coyote=%v landings=%d\nreq total=%d ok=%d failed=%d conflicted=%d",
		q.Position[0], q.Position[1], q.Velocity[0], q.Velocity[1],
		q.IsGrounded, q.IsEffectivelyGrounded, g.landed,
		st.Total, st.Successful, st.Failed, st.Conflicted))
}

func (g *Game) Layout(_, _ int) (int, int) {
	return len(stageRows[0]) * tileSize, len(stageRows) * tileSize
}

func main() {
	configDir := flag.String("config", "", "config directory (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configDir != "" {
		loaded, err := config.NewLoader(os.DirFS(*configDir)).LoadCore()
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}

	game, err := NewGame(cfg)
	if err != nil {
		log.Print(err)
		os.Exit(1)
	}

	ebiten.SetWindowSize(len(stageRows[0])*tileSize*scale, len(stageRows)*tileSize*scale)
	ebiten.SetWindowTitle("motioncore debug view")
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
