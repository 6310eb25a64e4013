package tray

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/wayle-project/wayle/internal/dbusutil"
	"github.com/wayle-project/wayle/internal/reactive"
	"github.com/wayle-project/wayle/internal/tray/dbusmenu"
)

// Item is the live form of a single registered StatusNotifierItem:
// its StatusNotifierItem properties and DBusMenu tree, kept current by
// subscribing to the item's New* and LayoutUpdated/
// ItemsPropertiesUpdated signals (spec.md §4.6).
type Item struct {
	Service string
	Path    dbus.ObjectPath

	IconName      *reactive.Property[string]
	Title         *reactive.Property[string]
	AttentionIcon *reactive.Property[string]
	OverlayIcon   *reactive.Property[string]
	ToolTip       *reactive.Property[string]
	Status        *reactive.Property[string]
	Menu          *reactive.Property[*dbusmenu.MenuItem]

	conn      *dbus.Conn
	obj       dbus.BusObject
	menu      *dbusmenu.Client
	logger    *slog.Logger
	cancel    context.CancelFunc
}

var _ reactive.ModelMonitoring = (*Item)(nil)

// newItemSnapshot fetches every StatusNotifierItem property and, if a
// Menu object path is exported, the full DBusMenu layout, returning a
// snapshot not yet subscribed to change signals (the Reactive "get"
// half of spec.md §4.3 — "get_live" additionally calls
// StartMonitoring).
func newItemSnapshot(conn *dbus.Conn, service string, logger *slog.Logger) (*Item, error) {
	obj := conn.Object(service, "/StatusNotifierItem")
	menuPath := dbusutil.PropertyOrDefault[dbus.ObjectPath](obj, itemIface+".Menu", "", logger)

	item := &Item{
		Service:       service,
		Path:          "/StatusNotifierItem",
		IconName:      reactive.New(dbusutil.PropertyOrDefault(obj, itemIface+".IconName", "", logger)),
		Title:         reactive.New(dbusutil.PropertyOrDefault(obj, itemIface+".Title", "", logger)),
		AttentionIcon: reactive.New(dbusutil.PropertyOrDefault(obj, itemIface+".AttentionIconName", "", logger)),
		OverlayIcon:   reactive.New(dbusutil.PropertyOrDefault(obj, itemIface+".OverlayIconName", "", logger)),
		ToolTip:       reactive.New(toolTipText(obj)),
		Status:        reactive.New(dbusutil.PropertyOrDefault(obj, itemIface+".Status", "Active", logger)),
		Menu:          reactive.New[*dbusmenu.MenuItem](nil),
		conn:          conn,
		obj:           obj,
		logger:        logger,
	}

	if menuPath != "" {
		item.menu = dbusmenu.NewClient(conn, service, menuPath)
		if tree, err := item.menu.GetLayout(); err == nil {
			item.Menu.Set(tree)
		} else {
			logger.Debug("dbusmenu GetLayout failed", "service", service, "error", err)
		}
	}
	return item, nil
}

// StartMonitoring subscribes to the item's change signals and the
// root cancellation token that tears the subscription down; it
// implements the ModelMonitoring contract of spec.md §4.3.
func (it *Item) StartMonitoring(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	it.cancel = cancel

	if err := it.conn.AddMatchSignal(
		dbus.WithMatchInterface(itemIface),
		dbus.WithMatchSender(it.Service),
	); err != nil {
		it.logger.Debug("subscribe tray item signals failed", "service", it.Service, "error", err)
	}
	if it.menu != nil {
		if err := it.conn.AddMatchSignal(
			dbus.WithMatchInterface("com.canonical.dbusmenu"),
			dbus.WithMatchSender(it.Service),
		); err != nil {
			it.logger.Debug("subscribe dbusmenu signals failed", "service", it.Service, "error", err)
		}
	}

	sigCh := make(chan *dbus.Signal, 16)
	it.conn.Signal(sigCh)

	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if sig.Sender != it.Service {
					continue
				}
				it.handleSignal(sig)
			}
		}
	}()
}

func (it *Item) handleSignal(sig *dbus.Signal) {
	member := signalMember(sig.Name)
	switch member {
	case "NewIcon":
		it.IconName.Set(dbusutil.PropertyOrDefault(it.obj, itemIface+".IconName", it.IconName.Get(), it.logger))
	case "NewTitle":
		it.Title.Set(dbusutil.PropertyOrDefault(it.obj, itemIface+".Title", it.Title.Get(), it.logger))
	case "NewAttentionIcon":
		it.AttentionIcon.Set(dbusutil.PropertyOrDefault(it.obj, itemIface+".AttentionIconName", it.AttentionIcon.Get(), it.logger))
	case "NewOverlayIcon":
		it.OverlayIcon.Set(dbusutil.PropertyOrDefault(it.obj, itemIface+".OverlayIconName", it.OverlayIcon.Get(), it.logger))
	case "NewToolTip":
		it.refreshToolTip()
	case "NewStatus":
		if len(sig.Body) == 1 {
			if s, ok := sig.Body[0].(string); ok {
				it.Status.Set(s)
				return
			}
		}
		it.Status.Set(dbusutil.PropertyOrDefault(it.obj, itemIface+".Status", it.Status.Get(), it.logger))
	case "LayoutUpdated", "ItemsPropertiesUpdated":
		it.refreshMenu()
	}
}

func (it *Item) refreshToolTip() {
	it.ToolTip.Set(toolTipText(it.obj))
}

// toolTipText fetches the StatusNotifierItem ToolTip property, a
// (iconName, iconPixmaps, title, description) tuple, and returns its
// title field; the description field is not read.
func toolTipText(obj dbus.BusObject) string {
	v, err := obj.GetProperty(itemIface + ".ToolTip")
	if err != nil {
		return ""
	}
	tuple, ok := v.Value().([]any)
	if !ok || len(tuple) < 3 {
		return ""
	}
	text, _ := tuple[2].(string)
	return text
}

func (it *Item) refreshMenu() {
	if it.menu == nil {
		return
	}
	tree, err := it.menu.GetLayout()
	if err != nil {
		it.logger.Debug("dbusmenu refresh failed", "service", it.Service, "error", err)
		return
	}
	it.Menu.Set(tree)
}

// SendEvent forwards a single clicked/hovered/opened/closed event to
// the item's menu for the given menu-item id.
func (it *Item) SendEvent(id int32, eventID string) error {
	if it.menu == nil {
		return fmt.Errorf("item %s has no menu", it.Service)
	}
	return it.menu.Event(id, eventID, dbus.MakeVariant(""), uint32(time.Now().Unix()))
}

// Activate, SecondaryActivate and ContextMenu invoke the item's
// corresponding StatusNotifierItem method at the given pointer
// position, per the protocol's click-handling methods.
func (it *Item) Activate(x, y int32) error {
	return it.obj.Call(itemIface+".Activate", 0, x, y).Err
}

func (it *Item) SecondaryActivate(x, y int32) error {
	return it.obj.Call(itemIface+".SecondaryActivate", 0, x, y).Err
}

func (it *Item) ContextMenu(x, y int32) error {
	return it.obj.Call(itemIface+".ContextMenu", 0, x, y).Err
}

// Scroll invokes the item's Scroll method; orientation is "vertical" or
// "horizontal" per the protocol.
func (it *Item) Scroll(delta int32, orientation string) error {
	return it.obj.Call(itemIface+".Scroll", 0, delta, orientation).Err
}

// Close cancels the item's monitoring goroutine.
func (it *Item) Close() {
	if it.cancel != nil {
		it.cancel()
	}
}

func signalMember(fullName string) string {
	if i := strings.LastIndex(fullName, "."); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}
