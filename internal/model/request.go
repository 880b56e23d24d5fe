package model

import (
	"sync"

	"github.com/runger/suggestd/internal/pool"
)

// DeviceChannel categorizes the client device issuing a request.
type DeviceChannel string

// Recognized device channels.
const (
	ChannelDesktopWeb        DeviceChannel = "desktop-web"
	ChannelTabletWeb         DeviceChannel = "tablet-web"
	ChannelTabletAppIOS      DeviceChannel = "tablet-app-ios"
	ChannelTabletAppAndroid  DeviceChannel = "tablet-app-android"
	ChannelTabletAppWindows  DeviceChannel = "tablet-app-windows"
	ChannelTabletAppOther    DeviceChannel = "tablet-app-other"
	ChannelMobileWeb         DeviceChannel = "mobile-web"
	ChannelMobileAppIOS      DeviceChannel = "mobile-app-ios"
	ChannelMobileAppAndroid  DeviceChannel = "mobile-app-android"
	ChannelMobileAppWindows  DeviceChannel = "mobile-app-windows"
	ChannelMobileAppOther    DeviceChannel = "mobile-app-other"
)

// IsMobile reports whether the channel is a phone-class device.
func (c DeviceChannel) IsMobile() bool {
	switch c {
	case ChannelMobileWeb, ChannelMobileAppIOS, ChannelMobileAppAndroid,
		ChannelMobileAppWindows, ChannelMobileAppOther:
		return true
	}
	return false
}

// SuggestRequest carries one suggestion request plus the derivations computed
// during request preparation.
type SuggestRequest struct {
	Input          string        `json:"input"`
	SelectedID     string        `json:"selected_id,omitempty"`
	UserLanguage   string        `json:"user_language,omitempty"`
	UserCountry    string        `json:"user_country,omitempty"`
	NumSuggestions int           `json:"num_suggestions,omitempty"`
	Channel        DeviceChannel `json:"channel,omitempty"`
	Debug          bool          `json:"debug,omitempty"`

	// Derived during PrepareRequest.
	NormalizedQuery  string   `json:"-"`
	LastWordComplete bool     `json:"-"`
	AlternateQueries []string `json:"-"`
}

// SuggestResponse is the internal response assembled by the pipeline.
type SuggestResponse struct {
	Success       bool          `json:"success"`
	Completions   []*Completion `json:"completions"`
	EnableInstant bool          `json:"enable_instant"`
}

// Context is shared between the pipeline and the tasks it schedules. Latch,
// when non-nil, must be notified exactly once by the task on every exit path.
// CurrentResponse points at the already-computed primary response during
// secondary phases.
type Context struct {
	Pool            *pool.Pool
	Latch           *pool.Latch
	CurrentResponse *SuggestResponse

	once sync.Once
}

// Done notifies the context latch. The notification fires at most once per
// context, so a task may defer Done for panic safety and still call it on its
// normal return path. Safe to call with a nil context.
func (c *Context) Done() {
	if c == nil || c.Latch == nil {
		return
	}
	c.once.Do(c.Latch.Notify)
}

// Child returns a copy of the context bound to a different latch.
func (c *Context) Child(latch *pool.Latch) *Context {
	child := &Context{Latch: latch}
	if c != nil {
		child.Pool = c.Pool
		child.CurrentResponse = c.CurrentResponse
	}
	return child
}
