package terminal

type commandGroup uint8

const (
	otherCmds commandGroup = iota
	convertCmds
)

type commandGroupDescription struct {
	description string
	group       commandGroup
}

var commandGroupDescriptions = []commandGroupDescription{
	{"Converting values", convertCmds},
	{"Other commands", otherCmds},
}
