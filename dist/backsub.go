package dist

import (
	"fmt"
	"time"

	"github.com/nodalfem/mpckit/backend"
	"github.com/nodalfem/mpckit/constraint"
	"github.com/nodalfem/mpckit/logger"
	"github.com/nodalfem/mpckit/mesh"
)

// Message tags for the two request/reply exchanges.
const (
	tagBacksubReq = iota + 1
	tagBacksubRep
	tagGhostReq
	tagGhostRep
)

// Backsubstitute recovers the slave entries of a solved reduced solution
// vector in place: value = sum coeff_k * solution[master_k]. Masters owned
// by other ranks are resolved with a request/reply round-trip — the owning
// rank does not know it is a master for a remote slave, so the slave-owning
// rank sends (master global index, coefficient) pairs and receives the
// products back. The call finishes with a ghost-value exchange, after which
// every rank's owned and ghost view of v is consistent. Running it again on
// a consistent vector is a no-op.
func Backsubstitute(c Comm, t *constraint.Table, v *backend.Vector) error {
	start := time.Now()
	im := t.IndexMap()
	bs := t.BlockSize()

	sums := make([]float64, t.NumSlaves())
	ownedSlave := make([]bool, t.NumSlaves())

	// Requests to remote master owners, grouped per destination rank and
	// recording which slave each reply entry belongs to.
	reqPayload := make(map[int][]float64)
	reqSlave := make(map[int][]int)

	for i, s := range t.Slaves() {
		if !im.IsOwned(s / bs) {
			continue
		}
		ownedSlave[i] = true
		masters, coeffs := t.Masters(i)
		owners := t.MasterOwners(i)
		for j, md := range masters {
			switch {
			case owners[j] == c.Rank():
				sums[i] += coeffs[j] * v.At(md)
			case owners[j] < 0 || owners[j] >= c.Size():
				return &constraint.ConfigurationError{
					Msg: fmt.Sprintf("cannot determine owner of master dof %d", t.GlobalDof(md)),
				}
			default:
				reqPayload[owners[j]] = append(reqPayload[owners[j]],
					float64(t.GlobalDof(md)), coeffs[j])
				reqSlave[owners[j]] = append(reqSlave[owners[j]], i)
			}
		}
	}

	if c.Size() > 1 {
		if err := resolveRemoteMasters(c, im, bs, v, reqPayload, reqSlave, sums); err != nil {
			return err
		}
	} else if len(reqPayload) > 0 {
		return &constraint.ConfigurationError{
			Msg: "remote master owners referenced on a single-rank communicator",
		}
	}

	for i, s := range t.Slaves() {
		if ownedSlave[i] {
			v.Set(s, sums[i])
		}
	}

	if c.Size() > 1 {
		if err := GhostUpdate(c, im, bs, v); err != nil {
			return err
		}
	}

	log := logger.Logger()
	log.Debug().
		Int("rank", c.Rank()).
		Int("slaves", t.NumSlaves()).
		Dur("elapsed", time.Since(start)).
		Msg("backsubstitution complete")
	return nil
}

// resolveRemoteMasters runs the bounded request/reply exchange: requests
// out, incoming requests served against the local solution, replies
// aggregated into the per-slave partial sums.
func resolveRemoteMasters(c Comm, im *mesh.IndexMap, bs int, v *backend.Vector,
	reqPayload map[int][]float64, reqSlave map[int][]int, sums []float64) error {

	countTo := make([]int, c.Size())
	for dest, payload := range reqPayload {
		countTo[dest] = len(payload) / 2
	}
	expected, err := exchangeCounts(c, countTo)
	if err != nil {
		return err
	}

	for dest, payload := range reqPayload {
		if err := c.Send(dest, tagBacksubReq, payload); err != nil {
			return err
		}
	}

	// Serve incoming requests: compute coeff * solution[master] per pair.
	for src := 0; src < c.Size(); src++ {
		if src == c.Rank() || expected[src] == 0 {
			continue
		}
		data, err := c.Recv(src, tagBacksubReq)
		if err != nil {
			return err
		}
		reply := make([]float64, 0, len(data)/2)
		for k := 0; k+1 < len(data); k += 2 {
			g := int(data[k])
			coeff := data[k+1]
			lb, ok := im.GlobalToLocal(g / bs)
			if !ok || !im.IsOwned(lb) {
				return &constraint.ConfigurationError{
					Msg: fmt.Sprintf("rank %d asked for master dof %d which is not owned here", src, g),
				}
			}
			reply = append(reply, coeff*v.At(lb*bs+g%bs))
		}
		if err := c.Send(src, tagBacksubRep, reply); err != nil {
			return err
		}
	}

	// Aggregate replies in request order.
	for dest, slaveIdx := range reqSlave {
		reply, err := c.Recv(dest, tagBacksubRep)
		if err != nil {
			return err
		}
		if len(reply) != len(slaveIdx) {
			return fmt.Errorf("rank %d replied with %d values for %d requests", dest, len(reply), len(slaveIdx))
		}
		for k, i := range slaveIdx {
			sums[i] += reply[k]
		}
	}
	return nil
}

// GhostUpdate refreshes the ghost entries of v from their owning ranks so
// all ranks observe consistent values.
func GhostUpdate(c Comm, im *mesh.IndexMap, bs int, v *backend.Vector) error {
	// Group ghost blocks by owner.
	reqBlocks := make(map[int][]float64)
	reqLocal := make(map[int][]int)
	for gi, g := range im.Ghosts() {
		owner := im.OwnerOfGlobal(g)
		if owner < 0 {
			return &constraint.ConfigurationError{
				Msg: fmt.Sprintf("cannot determine owner of ghost block %d", g),
			}
		}
		reqBlocks[owner] = append(reqBlocks[owner], float64(g))
		reqLocal[owner] = append(reqLocal[owner], im.LocalSize()+gi)
	}

	countTo := make([]int, c.Size())
	for dest, blocks := range reqBlocks {
		countTo[dest] = len(blocks)
	}
	expected, err := exchangeCounts(c, countTo)
	if err != nil {
		return err
	}

	for dest, blocks := range reqBlocks {
		if err := c.Send(dest, tagGhostReq, blocks); err != nil {
			return err
		}
	}

	for src := 0; src < c.Size(); src++ {
		if src == c.Rank() || expected[src] == 0 {
			continue
		}
		data, err := c.Recv(src, tagGhostReq)
		if err != nil {
			return err
		}
		reply := make([]float64, 0, len(data)*bs)
		for _, gf := range data {
			lb, ok := im.GlobalToLocal(int(gf))
			if !ok || !im.IsOwned(lb) {
				return fmt.Errorf("rank %d requested block %d which is not owned here", src, int(gf))
			}
			for k := 0; k < bs; k++ {
				reply = append(reply, v.At(lb*bs+k))
			}
		}
		if err := c.Send(src, tagGhostRep, reply); err != nil {
			return err
		}
	}

	for dest, locals := range reqLocal {
		reply, err := c.Recv(dest, tagGhostRep)
		if err != nil {
			return err
		}
		if len(reply) != len(locals)*bs {
			return fmt.Errorf("rank %d replied with %d ghost values for %d blocks", dest, len(reply), len(locals))
		}
		for k, lb := range locals {
			for comp := 0; comp < bs; comp++ {
				v.Set(lb*bs+comp, reply[k*bs+comp])
			}
		}
	}
	return nil
}
