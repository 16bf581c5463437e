// Package generator builds screen documents from Lua scripts, so repeated
// screen shapes can be produced programmatically instead of hand-written.
package generator

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/billy1976-servant/screenloom/internal/screen/node"
)

const screenTypeName = "screen"

// builder accumulates document fields while the script runs.
type builder struct {
	Key      string
	Title    string
	Template string
	Sections []map[string]any
}

// GenerateFile runs a Lua script and returns the screen document it builds.
// The script must return a Screen value.
func GenerateFile(path string) (node.Document, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerScreenType(state)
	registerScreenConstructor(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return node.Document{}, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return node.Document{}, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return node.Document{}, fmt.Errorf("screen script must return Screen")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	b, ok := ud.(*builder)
	if !ok || b == nil {
		return node.Document{}, fmt.Errorf("screen script returned invalid Screen")
	}
	if strings.TrimSpace(b.Key) == "" {
		b.Key = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return b.document()
}

// document serializes the accumulated fields through the same validation
// and parse pipeline as hand-written screen files.
func (b *builder) document() (node.Document, error) {
	raw := map[string]any{
		"key":      b.Key,
		"sections": b.Sections,
	}
	if b.Title != "" {
		raw["title"] = b.Title
	}
	if b.Template != "" {
		raw["template"] = b.Template
	}
	if b.Sections == nil {
		raw["sections"] = []map[string]any{}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return node.Document{}, fmt.Errorf("encode generated screen: %w", err)
	}
	if err := node.ValidateDocument(data); err != nil {
		return node.Document{}, fmt.Errorf("validate generated screen: %w", err)
	}
	doc, err := node.Parse(data)
	if err != nil {
		return node.Document{}, fmt.Errorf("parse generated screen: %w", err)
	}
	return doc, nil
}

func registerScreenType(state *lua.State) {
	lua.NewMetaTable(state, screenTypeName)
	state.NewTable()
	lua.SetFunctions(state, screenMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScreenConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, screenConstructor, 0)
	state.SetGlobal("Screen")
}

var screenConstructor = []lua.RegistryFunction{
	{Name: "new", Function: screenNew},
}

var screenMethods = []lua.RegistryFunction{
	{Name: "title", Function: screenTitle},
	{Name: "template", Function: screenTemplate},
	{Name: "section", Function: screenSection},
}

func screenNew(state *lua.State) int {
	key := lua.OptString(state, 1, "")
	state.PushUserData(&builder{Key: key})
	lua.SetMetaTableNamed(state, screenTypeName)
	return 1
}

func screenTitle(state *lua.State) int {
	b := checkScreen(state)
	b.Title = lua.CheckString(state, 2)
	return 0
}

func screenTemplate(state *lua.State) int {
	b := checkScreen(state)
	b.Template = lua.CheckString(state, 2)
	return 0
}

func screenSection(state *lua.State) int {
	b := checkScreen(state)
	role := lua.CheckString(state, 2)
	opts := optionalTable(state, 3)
	section := map[string]any{"type": "Section", "role": role}
	for key, value := range opts {
		section[key] = value
	}
	b.Sections = append(b.Sections, section)
	return 0
}

func checkScreen(state *lua.State) *builder {
	ud := lua.CheckUserData(state, 1, screenTypeName)
	if b, ok := ud.(*builder); ok && b != nil {
		return b
	}
	lua.ArgumentError(state, 1, "screen expected")
	return nil
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
