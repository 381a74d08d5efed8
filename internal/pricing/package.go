package pricing

import "math"

// PackageRequest describes a monthly reel + full-length + poster package.
// Callers keep CameraCount in 1..3 and ReelCount >= MinReels.
type PackageRequest struct {
	CameraCount     int
	ReelCount       int
	FullLengthCount int
	PosterCount     int
	SameShoot       bool // full-length videos are filmed during the reel shoot
}

// PackageQuote is the derived shoot time and cost of a package.
type PackageQuote struct {
	ShootHours        int `json:"shoot_hours"`
	FullLengthMinutes int `json:"full_length_minutes"`
	ShootCost         int `json:"shoot_cost"`
	ReelCost          int `json:"reel_cost"`
	FullLengthCost    int `json:"full_length_cost"`
	PosterCost        int `json:"poster_cost"`
	TotalCost         int `json:"total_cost"`
}

// CameraRates prices one camera setup. Shoot cost is FirstHour, then SecondHour for
// hour two, then ExtraHour for every hour after that.
type CameraRates struct {
	FirstHour      int `yaml:"first_hour"`
	SecondHour     int `yaml:"second_hour"`
	ExtraHour      int `yaml:"extra_hour"`
	ReelEdit       int `yaml:"reel_edit"`
	FullLengthEdit int `yaml:"full_length_edit"`
}

// PackageRates is the full package rate card.
type PackageRates struct {
	Cameras                map[int]CameraRates `yaml:"cameras"`
	Poster                 int                 `yaml:"poster"`
	ReelsPerShootHour      int                 `yaml:"reels_per_shoot_hour"`
	FullLengthPerShootHour int                 `yaml:"full_length_per_shoot_hour"`
	FullLengthMinutes      int                 `yaml:"full_length_minutes"`
	SetupBufferMinutes     int                 `yaml:"setup_buffer_minutes"`
	MinReels               int                 `yaml:"min_reels"`
}

// DefaultPackageRates is the studio's published package rate card.
func DefaultPackageRates() PackageRates {
	return PackageRates{
		Cameras: map[int]CameraRates{
			1: {FirstHour: 1500, SecondHour: 1000, ExtraHour: 1000, ReelEdit: 3500, FullLengthEdit: 1500},
			2: {FirstHour: 2500, SecondHour: 2000, ExtraHour: 2000, ReelEdit: 3500, FullLengthEdit: 2500},
			3: {FirstHour: 3500, SecondHour: 3500, ExtraHour: 2500, ReelEdit: 4500, FullLengthEdit: 3500},
		},
		Poster:                 500,
		ReelsPerShootHour:      2,
		FullLengthPerShootHour: 2,
		FullLengthMinutes:      15,
		SetupBufferMinutes:     30,
		MinReels:               5,
	}
}

// ShootHours derives the studio time a package needs. When full-length content is
// ordered the shoot must also fit all of it plus the setup buffer.
func (r PackageRates) ShootHours(req PackageRequest) int {
	hours := ceilDiv(req.ReelCount, r.ReelsPerShootHour)
	if req.FullLengthCount > 0 && !req.SameShoot {
		hours += ceilDiv(req.FullLengthCount, r.FullLengthPerShootHour)
	}

	if req.FullLengthCount > 0 {
		minMinutes := req.FullLengthCount*r.FullLengthMinutes + r.SetupBufferMinutes
		hours = max(hours, ceilDiv(minMinutes, 60))
	}
	return hours
}

// Quote prices a package. An unknown camera count prices shoot and editing at zero.
func (r PackageRates) Quote(req PackageRequest) PackageQuote {
	cam := r.Cameras[req.CameraCount]
	hours := r.ShootHours(req)

	q := PackageQuote{
		ShootHours:        hours,
		FullLengthMinutes: req.FullLengthCount * r.FullLengthMinutes,
		ReelCost:          req.ReelCount * cam.ReelEdit,
		FullLengthCost:    req.FullLengthCount * cam.FullLengthEdit,
		PosterCost:        req.PosterCount * r.Poster,
	}

	if hours > 0 {
		q.ShootCost = cam.FirstHour
		if hours > 1 {
			q.ShootCost += cam.SecondHour
		}
		if hours > 2 {
			q.ShootCost += (hours - 2) * cam.ExtraHour
		}
	}

	q.TotalCost = q.ShootCost + q.ReelCost + q.FullLengthCost + q.PosterCost
	return q
}

func ceilDiv(n, d int) int {
	if d <= 0 || n <= 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / float64(d)))
}
