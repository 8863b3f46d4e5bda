// Package mdp implements the three-state Markov decision process that steers
// the dispatcher between its normal and immediate queues.
//
// The value table is estimated with a simplified Bellman backup: every state
// takes the best single destination reachable from its transition row,
//
//	V[i] = max_d P[i][d] * (R[d] + γ·V[d])
//
// and the policy moves to the state d ≠ current that maximises
// P[current][d]·V[d].
package mdp
