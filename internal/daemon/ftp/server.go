package ftp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// PassiveRangeStart/End are the fixed passive data ports from spec.md
// §4.L6 "passive ports in a contiguous range (50000–50100)".
const (
	PassiveRangeStart = 50000
	PassiveRangeEnd   = 50100
	greeting          = "220 raptor-daemon FTP ready"
)

// Server is the jailed FTP server itself.
type Server struct {
	Log          *logrus.Entry
	Auth         *Authenticator
	ListenAddr   string
	PublicHost   string
	passivePorts *portCycle
}

// New constructs a Server listening on listenAddr (default port 2121 per
// spec.md §6), advertising publicHost in PASV replies.
func New(log *logrus.Entry, auth *Authenticator, listenAddr, publicHost string) *Server {
	return &Server{
		Log:          log,
		Auth:         auth,
		ListenAddr:   listenAddr,
		PublicHost:   publicHost,
		passivePorts: newPortCycle(PassiveRangeStart, PassiveRangeEnd),
	}
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

type session struct {
	*Server
	conn       net.Conn
	writer     *bufio.Writer
	username   string
	jail       *Jail
	cwd        string
	renameFrom string
	restOffset int64

	dataListener net.Listener
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	sess := &session{
		Server: s,
		conn:   conn,
		writer: bufio.NewWriter(conn),
		cwd:    "/",
	}
	sess.reply(greeting)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		cmd, arg := splitCommand(line)
		if !sess.dispatch(strings.ToUpper(cmd), arg) {
			return
		}
	}
}

func splitCommand(line string) (cmd, arg string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func (sess *session) reply(line string) {
	fmt.Fprintf(sess.writer, "%s\r\n", line)
	sess.writer.Flush()
}

// dispatch handles one command; returning false closes the connection.
func (sess *session) dispatch(cmd, arg string) bool {
	switch cmd {
	case "USER":
		sess.username = arg
		sess.reply("331 password required")
	case "PASS":
		home, ok := sess.Auth.Authenticate(sess.username, arg)
		if !ok {
			sess.reply("530 login incorrect")
			return false
		}
		sess.jail = &Jail{Home: home}
		if err := sess.jail.EnsureHome(); err != nil {
			sess.reply("451 could not prepare home directory")
			return false
		}
		sess.reply("230 login successful")
	case "SYST":
		sess.reply("215 UNIX Type: L8")
	case "FEAT":
		sess.reply("211-Features:")
		sess.reply(" REST STREAM")
		sess.reply("211 End")
	case "TYPE":
		sess.reply("200 type set")
	case "PWD", "XPWD":
		sess.reply(fmt.Sprintf("257 %q is the current directory", sess.cwd))
	case "CWD", "XCWD":
		sess.handleCWD(arg)
	case "CDUP":
		sess.handleCWD("..")
	case "PASV":
		sess.handlePASV()
	case "LIST", "NLST":
		sess.handleLIST(arg)
	case "RETR":
		sess.handleRETR(arg)
	case "STOR":
		sess.handleSTOR(arg)
	case "APPE":
		sess.handleAPPE(arg)
	case "REST":
		sess.handleREST(arg)
	case "DELE":
		sess.handleDELE(arg)
	case "MKD", "XMKD":
		sess.handleMKD(arg)
	case "RMD", "XRMD":
		sess.handleRMD(arg)
	case "RNFR":
		sess.renameFrom = arg
		sess.reply("350 ready for RNTO")
	case "RNTO":
		sess.handleRNTO(arg)
	case "SIZE":
		sess.handleSIZE(arg)
	case "NOOP":
		sess.reply("200 noop")
	case "QUIT":
		sess.reply("221 goodbye")
		return false
	default:
		sess.reply("502 command not implemented")
	}
	return true
}

func (sess *session) handleCWD(arg string) {
	target := sess.resolveCWDTarget(arg)
	abs := sess.jail.Resolve(target)
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		sess.reply("550 not a directory")
		return
	}
	sess.cwd = target
	sess.reply("250 directory changed")
}

func (sess *session) resolveCWDTarget(arg string) string {
	if arg == ".." {
		return filepath.Dir(sess.cwd)
	}
	if strings.HasPrefix(arg, "/") {
		return arg
	}
	return filepath.Join(sess.cwd, arg)
}

func (sess *session) handlePASV() {
	port := sess.passivePorts.next()
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		sess.reply("425 cannot open passive connection")
		return
	}
	sess.dataListener = ln

	ipParts := strings.Split(sess.PublicHost, ".")
	if len(ipParts) != 4 {
		ipParts = []string{"127", "0", "0", "1"}
	}
	p1, p2 := port/256, port%256
	sess.reply(fmt.Sprintf("227 Entering Passive Mode (%s,%s,%s,%s,%d,%d)", ipParts[0], ipParts[1], ipParts[2], ipParts[3], p1, p2))
}

func (sess *session) openData() (net.Conn, error) {
	if sess.dataListener == nil {
		return nil, fmt.Errorf("no passive listener open")
	}
	defer func() {
		sess.dataListener.Close()
		sess.dataListener = nil
	}()
	sess.dataListener.(*net.TCPListener).SetDeadline(time.Now().Add(30 * time.Second))
	return sess.dataListener.Accept()
}

func (sess *session) handleLIST(arg string) {
	target := sess.resolveCWDTarget(arg)
	abs := sess.jail.Resolve(target)

	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(abs, 0o777); mkErr != nil {
				sess.reply("550 failed to list")
				return
			}
			entries = nil
		} else {
			sess.reply("550 failed to list")
			return
		}
	}

	sess.reply("150 opening data connection")
	data, err := sess.openData()
	if err != nil {
		sess.reply("425 cannot open data connection")
		return
	}
	defer data.Close()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(data, "%s\r\n", formatListLine(info))
	}
	sess.reply("226 transfer complete")
}

func formatListLine(info os.FileInfo) string {
	perm := "-rw-rw-rw-"
	if info.IsDir() {
		perm = "drwxrwxrwx"
	}
	return fmt.Sprintf("%s 1 owner group %12d %s %s", perm, info.Size(), info.ModTime().Format("Jan 02 15:04"), info.Name())
}

// handleREST implements spec.md §4.L6's resume support: it stores the
// requested byte offset, applied by the next RETR or STOR and cleared
// afterward, matching ftp.rs's get/put(start_pos) taking effect once.
func (sess *session) handleREST(arg string) {
	offset, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || offset < 0 {
		sess.reply("501 invalid restart offset")
		return
	}
	sess.restOffset = offset
	sess.reply(fmt.Sprintf("350 restarting at %d", offset))
}

func (sess *session) handleRETR(arg string) {
	offset := sess.restOffset
	sess.restOffset = 0

	abs := sess.jail.Resolve(sess.resolveCWDTarget(arg))
	f, err := os.Open(abs)
	if err != nil {
		sess.reply("550 file not found")
		return
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			sess.reply("550 could not seek to restart offset")
			return
		}
	}

	sess.reply("150 opening data connection")
	data, err := sess.openData()
	if err != nil {
		sess.reply("425 cannot open data connection")
		return
	}
	defer data.Close()

	if _, err := io.Copy(data, f); err != nil {
		sess.reply("426 transfer aborted")
		return
	}
	sess.reply("226 transfer complete")
}

// handleSTOR implements plain and resumed uploads. A zero offset creates
// or truncates the destination (fresh upload); a positive offset, set by
// a preceding REST, opens the existing file without truncating and seeks
// to it before copying, matching ftp.rs's put(start_pos).
func (sess *session) handleSTOR(arg string) {
	offset := sess.restOffset
	sess.restOffset = 0

	abs := sess.jail.Resolve(sess.resolveCWDTarget(arg))
	if err := os.MkdirAll(filepath.Dir(abs), 0o777); err != nil {
		sess.reply("550 failed to prepare destination")
		return
	}

	var f *os.File
	var err error
	if offset > 0 {
		f, err = os.OpenFile(abs, os.O_WRONLY, 0o666)
	} else {
		f, err = os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	}
	if err != nil {
		sess.reply("550 failed to open destination")
		return
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			sess.reply("550 could not seek to restart offset")
			return
		}
	}

	sess.reply("150 opening data connection")
	data, err := sess.openData()
	if err != nil {
		sess.reply("425 cannot open data connection")
		return
	}
	defer data.Close()

	if _, err := io.Copy(f, data); err != nil {
		sess.reply("426 transfer aborted")
		return
	}
	sess.reply("226 transfer complete")
}

// handleAPPE always appends to the destination, creating it if absent,
// and is unrelated to REST — unlike STOR it never truncates.
func (sess *session) handleAPPE(arg string) {
	sess.restOffset = 0

	abs := sess.jail.Resolve(sess.resolveCWDTarget(arg))
	if err := os.MkdirAll(filepath.Dir(abs), 0o777); err != nil {
		sess.reply("550 failed to prepare destination")
		return
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		sess.reply("550 failed to open destination")
		return
	}
	defer f.Close()

	sess.reply("150 opening data connection")
	data, err := sess.openData()
	if err != nil {
		sess.reply("425 cannot open data connection")
		return
	}
	defer data.Close()

	if _, err := io.Copy(f, data); err != nil {
		sess.reply("426 transfer aborted")
		return
	}
	sess.reply("226 transfer complete")
}

func (sess *session) handleDELE(arg string) {
	abs := sess.jail.Resolve(sess.resolveCWDTarget(arg))
	if err := os.Remove(abs); err != nil {
		sess.reply("550 delete failed")
		return
	}
	sess.reply("250 deleted")
}

func (sess *session) handleMKD(arg string) {
	abs := sess.jail.Resolve(sess.resolveCWDTarget(arg))
	if err := os.MkdirAll(abs, 0o777); err != nil {
		sess.reply("550 mkdir failed")
		return
	}
	sess.reply(fmt.Sprintf("257 %q created", arg))
}

func (sess *session) handleRMD(arg string) {
	abs := sess.jail.Resolve(sess.resolveCWDTarget(arg))
	if err := os.RemoveAll(abs); err != nil {
		sess.reply("550 rmdir failed")
		return
	}
	sess.reply("250 removed")
}

func (sess *session) handleRNTO(arg string) {
	if sess.renameFrom == "" {
		sess.reply("503 RNFR required first")
		return
	}
	from := sess.jail.Resolve(sess.resolveCWDTarget(sess.renameFrom))
	to := sess.jail.Resolve(sess.resolveCWDTarget(arg))
	sess.renameFrom = ""

	if err := os.Rename(from, to); err != nil {
		sess.reply("550 rename failed")
		return
	}
	sess.reply("250 renamed")
}

func (sess *session) handleSIZE(arg string) {
	abs := sess.jail.Resolve(sess.resolveCWDTarget(arg))
	info, err := os.Stat(abs)
	if err != nil {
		sess.reply("550 file not found")
		return
	}
	sess.reply(fmt.Sprintf("213 %d", info.Size()))
}

// portCycle hands out passive ports round-robin across the fixed range.
type portCycle struct {
	start, end, cursor int
}

func newPortCycle(start, end int) *portCycle {
	return &portCycle{start: start, end: end, cursor: start}
}

func (p *portCycle) next() int {
	port := p.cursor
	p.cursor++
	if p.cursor > p.end {
		p.cursor = p.start
	}
	return port
}
