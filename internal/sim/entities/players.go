// Package entities holds the sparse registries for players and item drops.
package entities

type Player struct {
	Y, X                 float32
	YVelocity, XVelocity float32
}

// Players is indexed by player id. It grows to the highest id referenced and
// never shrinks.
type Players struct {
	speed float32
	list  []Player
	known [256]bool
	count int
}

func NewPlayers(speed float32) *Players {
	return &Players{speed: speed}
}

func (p *Players) ensure(id uint8) *Player {
	if int(id) >= len(p.list) {
		p.list = append(p.list, make([]Player, int(id)+1-len(p.list))...)
	}
	if !p.known[id] {
		p.known[id] = true
		p.count++
	}
	return &p.list[id]
}

func (p *Players) SetVelocity(id uint8, yVel, xVel float32) {
	pl := p.ensure(id)
	pl.YVelocity, pl.XVelocity = yVel, xVel
}

func (p *Players) SetPositionAndVelocity(id uint8, y, x, yVel, xVel float32) {
	*p.ensure(id) = Player{Y: y, X: x, YVelocity: yVel, XVelocity: xVel}
}

// Snapshot returns a copy of the player's state.
func (p *Players) Snapshot(id uint8) (Player, bool) {
	if int(id) >= len(p.list) {
		return Player{}, false
	}
	return p.list[id], true
}

// UpdateAll integrates every player's position by dt seconds.
func (p *Players) UpdateAll(dt float32) {
	for i := range p.list {
		pl := &p.list[i]
		pl.Y += pl.YVelocity * dt * p.speed
		pl.X += pl.XVelocity * dt * p.speed
	}
}

// Count is the number of ids that have had a position or velocity set.
func (p *Players) Count() int { return p.count }

// Each calls fn for every id counted by Count, in id order.
func (p *Players) Each(fn func(id uint8, pl Player)) {
	for i := range p.list {
		if p.known[i] {
			fn(uint8(i), p.list[i])
		}
	}
}
